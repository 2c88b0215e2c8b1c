package dto

import (
	"time"

	"github.com/campuschat/chat-service/internal/domain/models"
)

// SuccessResponse acknowledges a write with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// MessageResponse carries a human-readable result plus the affected ID.
type MessageResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
}

// ConversationSummary is one row of a conversation listing.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversationSummary converts a domain conversation into a listing row.
func NewConversationSummary(c *models.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationMessage is one message in the frontend read format.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Feedback  string    `json:"feedback,omitempty"`
}

// ConversationReadResponse is the body of /history/read.
type ConversationReadResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []ConversationMessage `json:"messages"`
}

// NewConversationMessages converts domain messages into the read format.
func NewConversationMessages(messages []*models.Message) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ConversationMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			Feedback:  m.Feedback,
		})
	}
	return out
}

// FrontendSettings is the capability document served to the client.
type FrontendSettings struct {
	AuthEnabled     bool               `json:"auth_enabled"`
	FeedbackEnabled bool               `json:"feedback_enabled"`
	UI              FrontendUISettings `json:"ui"`
}

// FrontendUISettings holds the branding block of the frontend settings.
type FrontendUISettings struct {
	Title           string `json:"title"`
	Logo            string `json:"logo"`
	ChatLogo        string `json:"chat_logo"`
	ChatTitle       string `json:"chat_title"`
	ChatDescription string `json:"chat_description"`
	ShowShareButton bool   `json:"show_share_button"`
}

// PromptSuggestionsResponse is the body of /api/prompt-suggestions.
type PromptSuggestionsResponse struct {
	PromptSuggestions        string `json:"prompt_suggestions"`
	PromptSuggestionsShowNum string `json:"prompt_suggestions_show_num"`
}

// PromptTemplateResponse echoes the persona that was set.
type PromptTemplateResponse struct {
	PromptType string `json:"promptType"`
}

// SessionStatusResponse is the body of /api/check_session.
type SessionStatusResponse struct {
	Status  string      `json:"status"`
	Session interface{} `json:"session,omitempty"`
	Message string      `json:"message,omitempty"`
}

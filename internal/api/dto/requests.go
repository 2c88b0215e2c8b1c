// Package dto contains request and response types for the API.
package dto

import (
	"github.com/campuschat/chat-service/internal/domain/models"
)

// MessageInput is one inbound chat message.
type MessageInput struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	ImageData string `json:"imageData,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
}

// ToModel converts the input into a domain message.
func (m MessageInput) ToModel() models.Message {
	return models.Message{
		ID:        m.ID,
		Role:      models.MessageRole(m.Role),
		Content:   m.Content,
		ImageData: m.ImageData,
		Feedback:  m.Feedback,
	}
}

// ConversationRequest is the body of /conversation and /history/generate.
type ConversationRequest struct {
	ConversationID string         `json:"conversation_id,omitempty"`
	Messages       []MessageInput `json:"messages"`
	Model          string         `json:"model,omitempty"`
}

// ToModels converts the request messages into domain messages.
func (r ConversationRequest) ToModels() []models.Message {
	out := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.ToModel())
	}
	return out
}

// ConversationRefRequest carries just a conversation reference.
type ConversationRefRequest struct {
	ConversationID string `json:"conversation_id"`
}

// RenameRequest renames a conversation.
type RenameRequest struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

// FeedbackRequest annotates a message with feedback.
type FeedbackRequest struct {
	MessageID       string `json:"message_id"`
	MessageFeedback string `json:"message_feedback"`
}

// PromptTemplateRequest switches the session persona.
type PromptTemplateRequest struct {
	PromptType string `json:"promptType"`
}

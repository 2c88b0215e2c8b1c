// Package models contains domain models for the chat service.
package models

import "time"

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	// RoleSystem represents a system message.
	RoleSystem MessageRole = "system"
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a message from the assistant.
	RoleAssistant MessageRole = "assistant"
	// RoleTool represents a tool output message preceding an assistant reply.
	RoleTool MessageRole = "tool"
)

// Document type discriminators. Conversations and their messages share one
// partitioned collection and are told apart by the "type" field.
const (
	DocTypeConversation = "conversation"
	DocTypeMessage      = "message"
)

// Message represents a chat message in a conversation. Messages are immutable
// once persisted, except for the Feedback annotation.
type Message struct {
	ID             string      `json:"id" bson:"id"`
	Type           string      `json:"type" bson:"type"`
	UserID         string      `json:"userId" bson:"userId"`
	ConversationID string      `json:"conversationId" bson:"conversationId"`
	Role           MessageRole `json:"role" bson:"role"`
	Content        string      `json:"content" bson:"content"`
	ImageData      string      `json:"imageData,omitempty" bson:"imageData,omitempty"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updatedAt"`
	Feedback       string      `json:"feedback,omitempty" bson:"feedback,omitempty"`
}

// NewMessage creates a message owned by the given user and conversation.
func NewMessage(id, userID, conversationID string, role MessageRole, content string) *Message {
	now := time.Now().UTC()
	return &Message{
		ID:             id,
		Type:           DocTypeMessage,
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Conversation represents a chat conversation owned by one user. The user ID
// is the partition key for every document under it.
type Conversation struct {
	ID        string    `json:"id" bson:"id"`
	Type      string    `json:"type" bson:"type"`
	UserID    string    `json:"userId" bson:"userId"`
	Title     string    `json:"title" bson:"title"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewConversation creates a conversation for the given user.
func NewConversation(id, userID, title string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		Type:      DocTypeConversation,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

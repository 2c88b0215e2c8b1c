package chat

import (
	"github.com/campuschat/chat-service/internal/services/completion"
)

// HistoryMetadata rides along with every wire response so the frontend can
// associate the reply with its persisted conversation.
type HistoryMetadata struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Date           string `json:"date,omitempty"`
}

// WireResponse is the uniform envelope for both streamed chunks and
// single-shot documents.
type WireResponse struct {
	ID      string          `json:"id"`
	Content string          `json:"content"`
	History HistoryMetadata `json:"history"`
}

// ToWireResponse converts one completion chunk into the wire envelope.
func ToWireResponse(chunk *completion.CompletionChunk, meta HistoryMetadata) *WireResponse {
	return &WireResponse{
		ID:      chunk.ID,
		Content: chunk.Content,
		History: meta,
	}
}

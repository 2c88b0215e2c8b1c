// Package completion dispatches prepared chat requests to the model
// provider, over the text path or the vision path, and exposes the reply as
// a pull-based chunk stream.
package completion

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/campuschat/chat-service/internal/services/datasource"
)

// ModelRequest is the provider-ready completion request. DataSources rides
// at the top level of the body, which is where the retrieval extension API
// looks for it.
type ModelRequest struct {
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float32                        `json:"temperature"`
	MaxTokens   int                            `json:"max_tokens"`
	TopP        float32                        `json:"top_p"`
	Stop        []string                       `json:"stop,omitempty"`
	Stream      bool                           `json:"stream"`
	Model       string                         `json:"model"`
	DataSources []*datasource.DataSource       `json:"dataSources,omitempty"`
}

// CompletionChunk is one unit of a model reply. A non-streaming reply is a
// single chunk; a streaming reply is an ordered, append-only sequence of
// them.
type CompletionChunk struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	Role         string `json:"role,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

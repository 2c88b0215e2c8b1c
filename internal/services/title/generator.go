// Package title generates short conversation titles with a one-shot,
// non-retrieval model call.
package title

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/completion"
)

const (
	titlePrompt = `Summarize the conversation so far into a 4-word or less title. Do not use any quotation marks or punctuation. Respond with a json object in the format {"title": string}. Do not include any other commentary or description.`

	titleTemperature = 1
	titleMaxTokens   = 64
)

// Completer issues the single completion call the generator needs.
type Completer interface {
	Create(ctx context.Context, req *completion.ModelRequest) (*completion.CompletionChunk, error)
}

// Generator summarizes conversations into titles. Title generation is
// cosmetic: every failure degrades to a fallback instead of propagating.
type Generator struct {
	completer Completer
	model     string
}

// NewGenerator creates a title generator. The completer must be bound to
// the plain completions path, not the retrieval extensions one.
func NewGenerator(completer Completer, model string) *Generator {
	return &Generator{completer: completer, model: model}
}

type titleResponse struct {
	Title string `json:"title"`
}

// Generate asks the model for a title over the given conversation. On any
// failure it returns the second-to-last constructed message's content, the
// last one being the title prompt itself.
func (g *Generator) Generate(ctx context.Context, messages []models.Message) string {
	requestMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	for _, msg := range messages {
		requestMessages = append(requestMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	requestMessages = append(requestMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: titlePrompt,
	})

	fallback := ""
	if len(requestMessages) >= 2 {
		fallback = requestMessages[len(requestMessages)-2].Content
	}

	chunk, err := g.completer.Create(ctx, &completion.ModelRequest{
		Messages:    requestMessages,
		Temperature: titleTemperature,
		MaxTokens:   titleMaxTokens,
		TopP:        1,
		Model:       g.model,
	})
	if err != nil {
		log.Warn().Err(err).Msg("title generation failed, using fallback")
		return fallback
	}

	var parsed titleResponse
	if err := json.Unmarshal([]byte(chunk.Content), &parsed); err != nil || parsed.Title == "" {
		log.Warn().Msg("title response was not valid json, using fallback")
		return fallback
	}
	return parsed.Title
}

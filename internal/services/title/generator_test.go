package title_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/completion"
	"github.com/campuschat/chat-service/internal/services/title"
)

type stubCompleter struct {
	req     *completion.ModelRequest
	content string
	err     error
}

func (s *stubCompleter) Create(ctx context.Context, req *completion.ModelRequest) (*completion.CompletionChunk, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &completion.CompletionChunk{ID: "title-1", Content: s.content}, nil
}

func TestGenerate_ParsesTitleFromJSON(t *testing.T) {
	// Arrange
	completer := &stubCompleter{content: `{"title": "Campus Library Hours"}`}
	generator := title.NewGenerator(completer, "gpt-35-turbo-16k")

	// Act
	got := generator.Generate(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "When does the library open?"},
	})

	// Assert
	assert.Equal(t, "Campus Library Hours", got)

	require.NotNil(t, completer.req)
	assert.Equal(t, "gpt-35-turbo-16k", completer.req.Model)
	assert.Equal(t, 64, completer.req.MaxTokens)
	assert.InDelta(t, 1.0, completer.req.Temperature, 0.001)

	// The prompt travels as an extra trailing user message.
	require.Len(t, completer.req.Messages, 2)
	assert.Equal(t, "When does the library open?", completer.req.Messages[0].Content)
	assert.Contains(t, completer.req.Messages[1].Content, "4-word or less title")
}

func TestGenerate_FallsBackOnMalformedJSON(t *testing.T) {
	// Arrange
	completer := &stubCompleter{content: "Campus Library Hours"}
	generator := title.NewGenerator(completer, "gpt-35-turbo-16k")

	// Act
	got := generator.Generate(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "When does the library open?"},
	})

	// Assert: fallback is the last conversation message before the prompt.
	assert.Equal(t, "When does the library open?", got)
}

func TestGenerate_FallsBackOnCompleterError(t *testing.T) {
	// Arrange
	completer := &stubCompleter{err: assert.AnError}
	generator := title.NewGenerator(completer, "gpt-35-turbo-16k")

	// Act
	got := generator.Generate(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "first question"},
		{Role: models.RoleAssistant, Content: "an answer"},
	})

	// Assert
	assert.Equal(t, "an answer", got)
}

func TestGenerate_FallsBackOnEmptyTitle(t *testing.T) {
	// Arrange
	completer := &stubCompleter{content: `{"title": ""}`}
	generator := title.NewGenerator(completer, "gpt-35-turbo-16k")

	// Act
	got := generator.Generate(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "hello"},
	})

	// Assert
	assert.Equal(t, "hello", got)
}

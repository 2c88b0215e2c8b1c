// Package chat orchestrates the request-shaping and streaming-response
// pipeline: build the provider request, dispatch it, and relay the reply in
// the wire format.
package chat

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/completion"
	"github.com/campuschat/chat-service/internal/services/datasource"
	"github.com/campuschat/chat-service/internal/services/templates"
)

// imageMarker is appended to message content that carries inline image
// data, giving the text path some context for the attachment.
const imageMarker = " [Image attached]"

// PrepareContext carries the per-request inputs the builder needs beyond
// the messages themselves.
type PrepareContext struct {
	UserID      string
	Persona     models.Persona
	AccessToken string
}

// Builder turns an inbound message list into a provider-ready ModelRequest.
type Builder struct {
	openAI    config.OpenAIConfig
	selector  *datasource.Selector
	templates *templates.Client
}

// NewBuilder creates a request builder. templatesClient may be nil when the
// template service is not configured.
func NewBuilder(openAI config.OpenAIConfig, selector *datasource.Selector, templatesClient *templates.Client) *Builder {
	return &Builder{
		openAI:    openAI,
		selector:  selector,
		templates: templatesClient,
	}
}

// SystemMessage resolves the persona-specific system prompt.
func (b *Builder) SystemMessage(persona models.Persona) string {
	if persona == models.PersonaTutor {
		return b.openAI.SystemMessageTutor
	}
	return b.openAI.SystemMessage
}

// Prepare validates the messages and assembles the model request. Input
// order is preserved; a system message is prepended exactly when retrieval
// is disabled (with retrieval on, the system prompt travels as the data
// source's roleInformation instead).
func (b *Builder) Prepare(ctx context.Context, messages []models.Message, pc PrepareContext) (*completion.ModelRequest, error) {
	if len(messages) == 0 {
		return nil, domainerrors.NewValidationError("the 'messages' field should contain at least one message")
	}

	systemMessage := b.SystemMessage(pc.Persona)
	useData := b.selector != nil && b.selector.Enabled()

	requestMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if !useData {
		requestMessages = append(requestMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemMessage,
		})
	}

	for _, msg := range messages {
		content := msg.Content
		if msg.ImageData != "" {
			content += imageMarker
		}
		requestMessages = append(requestMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: content,
		})
	}

	req := &completion.ModelRequest{
		Messages:    requestMessages,
		Temperature: b.openAI.Temperature,
		MaxTokens:   b.openAI.MaxTokens,
		TopP:        b.openAI.TopP,
		Stop:        config.ParseMultiColumns(b.openAI.StopSequence),
		Stream:      b.openAI.Stream,
		Model:       b.openAI.Model,
	}

	if useData {
		reqCtx := datasource.RequestContext{
			RoleInformation: systemMessage,
			AccessToken:     pc.AccessToken,
		}
		if b.templates != nil {
			reqCtx.Filter = b.templates.FilterFor(ctx, pc.UserID)
		}

		ds, err := b.selector.Build(ctx, reqCtx)
		if err != nil {
			return nil, err
		}
		req.DataSources = []*datasource.DataSource{ds}
	}

	logRequest(req)
	return req, nil
}

// logRequest logs the prepared request with every data source credential
// masked. The redacted copy never reaches the provider.
func logRequest(req *completion.ModelRequest) {
	event := log.Debug()
	if !event.Enabled() {
		return
	}

	if len(req.DataSources) > 0 {
		redacted := make([]*datasource.DataSource, len(req.DataSources))
		for i, ds := range req.DataSources {
			redacted[i] = ds.Redacted()
		}
		clean := *req
		clean.DataSources = redacted
		event.Interface("request", &clean).Msg("prepared model request")
		return
	}
	event.Interface("request", req).Msg("prepared model request")
}

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
)

const userAgent = "CampusChat/1.0.0"

// Client issues chat completion calls against an Azure OpenAI deployment.
// When retrieval is active the requests go through the deployment's
// extensions path, which is the surface that understands dataSources.
type Client struct {
	completionsURL string
	apiKey         string
	httpClient     *http.Client
}

// NewClient creates a completion client. useExtensions routes requests
// through the retrieval extensions path.
func NewClient(cfg config.OpenAIConfig, useExtensions bool) (*Client, error) {
	endpoint, err := cfg.ResolveEndpoint()
	if err != nil {
		return nil, domainerrors.NewConfigurationError(err.Error())
	}
	if cfg.Model == "" {
		return nil, domainerrors.NewConfigurationError("AZURE_OPENAI_MODEL is required")
	}

	base := fmt.Sprintf("%s/openai/deployments/%s", strings.TrimRight(endpoint, "/"), cfg.Model)
	if useExtensions {
		base += "/extensions"
	}

	return &Client{
		completionsURL: fmt.Sprintf("%s/chat/completions?api-version=%s", base, cfg.APIVersion),
		apiKey:         cfg.Key,
		// No client timeout: streaming responses stay open as long as the
		// provider keeps producing. Cancellation comes from the request
		// context.
		httpClient: &http.Client{},
	}, nil
}

// Create issues a non-streaming completion call and returns the reply as a
// single chunk.
func (c *Client) Create(ctx context.Context, req *ModelRequest) (*CompletionChunk, error) {
	body := *req
	body.Stream = false

	resp, err := c.post(ctx, &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var completion openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to decode completion response", err)
	}
	if len(completion.Choices) == 0 {
		return nil, domainerrors.NewUpstreamError("completion response contained no choices", nil)
	}

	choice := completion.Choices[0]
	return &CompletionChunk{
		ID:           completion.ID,
		Content:      choice.Message.Content,
		Role:         choice.Message.Role,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// CreateStream issues a streaming completion call. The returned stream must
// be closed by the caller.
func (c *Client) CreateStream(ctx context.Context, req *ModelRequest) (ChunkStream, error) {
	body := *req
	body.Stream = true

	resp, err := c.post(ctx, &body)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp), nil
}

func (c *Client) post(ctx context.Context, req *ModelRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to marshal completion request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to create completion request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("x-ms-useragent", userAgent)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domainerrors.NewUpstreamError("completion request failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, domainerrors.NewUnauthorizedError("completion API rejected the credential")
		}
		return nil, domainerrors.NewUpstreamError(
			fmt.Sprintf("completion API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}
	return resp, nil
}

// WithHTTPClient overrides the underlying HTTP client, used in tests.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

package completion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/config"
	"github.com/campuschat/chat-service/internal/core/objectstore"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
)

const (
	visionMaxTokens   = 2048
	visionTemperature = 0.7
	visionTopP        = 1
)

// VisionClient completes prompts that carry an inline image. The image is
// staged in the object store first so the vision model receives a URL
// instead of raw bytes.
type VisionClient struct {
	endpoint   string
	credential string
	store      objectstore.Store
	httpClient *http.Client
}

// NewVisionClient creates a vision completion client.
func NewVisionClient(cfg config.VisionConfig, store objectstore.Store) (*VisionClient, error) {
	if cfg.Endpoint == "" {
		return nil, domainerrors.NewConfigurationError("AZURE_VISION_ENDPOINT is required for the vision model")
	}
	if cfg.Credential == "" {
		return nil, domainerrors.NewConfigurationError("a key should be provided to invoke the vision endpoint")
	}
	if store == nil {
		return nil, domainerrors.NewConfigurationError("an object store is required for vision image uploads")
	}

	return &VisionClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		credential: cfg.Credential,
		store:      store,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type visionRequest struct {
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	MaxTokens   int                            `json:"max_tokens"`
	Temperature float32                        `json:"temperature"`
	TopP        float32                        `json:"top_p"`
}

// Complete extracts the most recent user message's text and image, uploads
// the image, and issues one non-streaming call to the vision model.
func (c *VisionClient) Complete(ctx context.Context, messages []models.Message) (*CompletionChunk, error) {
	var (
		userText  string
		imageData string
	)
	for _, msg := range messages {
		if msg.Role != models.RoleUser {
			continue
		}
		if msg.ImageData != "" {
			imageData = msg.ImageData
		}
		userText = msg.Content
	}

	if imageData == "" {
		return nil, domainerrors.NewValidationError("image data is missing for the vision model")
	}
	if userText == "" {
		return nil, domainerrors.NewValidationError("both image and prompt text must be provided")
	}

	decoded, err := decodeImageData(imageData)
	if err != nil {
		return nil, domainerrors.NewValidationError(fmt.Sprintf("failed to decode image data: %v", err))
	}

	imageURL, err := c.store.Upload(ctx, decoded, "image/png")
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to upload image to object storage", err)
	}
	log.Debug().Str("image_url", imageURL).Msg("image staged for vision request")

	payload := &visionRequest{
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Here is an image: %s. %s", imageURL, userText),
			},
		},
		MaxTokens:   visionMaxTokens,
		Temperature: visionTemperature,
		TopP:        visionTopP,
	}

	return c.complete(ctx, payload)
}

func (c *VisionClient) complete(ctx context.Context, payload *visionRequest) (*CompletionChunk, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to marshal vision request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to create vision request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.credential)
	req.Header.Set("x-ms-useragent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domainerrors.NewUpstreamError("vision request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, domainerrors.NewUnauthorizedError("vision API rejected the credential")
		}
		return nil, domainerrors.NewUpstreamError(
			fmt.Sprintf("vision API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}

	var completion openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to decode vision response", err)
	}
	if len(completion.Choices) == 0 {
		return nil, domainerrors.NewUpstreamError("vision response contained no choices", nil)
	}

	return &CompletionChunk{
		ID:      "vision-instruct-response",
		Content: completion.Choices[0].Message.Content,
		Role:    completion.Choices[0].Message.Role,
	}, nil
}

// WithHTTPClient overrides the underlying HTTP client, used in tests.
func (c *VisionClient) WithHTTPClient(httpClient *http.Client) *VisionClient {
	c.httpClient = httpClient
	return c
}

// decodeImageData decodes a base64 image payload, accepting both the bare
// base64 form and the data-URI form with a "data:...;base64," prefix.
func decodeImageData(imageData string) ([]byte, error) {
	if idx := strings.Index(imageData, ","); idx >= 0 {
		imageData = imageData[idx+1:]
	}
	return base64.StdEncoding.DecodeString(imageData)
}

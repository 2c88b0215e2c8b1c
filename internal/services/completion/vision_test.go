package completion_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/completion"
)

type fakeObjectStore struct {
	uploaded []byte
	url      string
	err      error
}

func (f *fakeObjectStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	f.uploaded = data
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func imageMessage(content string) models.Message {
	return models.Message{
		Role:      models.RoleUser,
		Content:   content,
		ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	}
}

func TestNewVisionClient_RequiresEndpoint(t *testing.T) {
	// Act
	client, err := completion.NewVisionClient(config.VisionConfig{Credential: "key"}, &fakeObjectStore{})

	// Assert
	assert.Nil(t, client)
	assert.True(t, domainerrors.IsConfigurationError(err))
}

func TestNewVisionClient_RequiresCredential(t *testing.T) {
	// Act
	client, err := completion.NewVisionClient(config.VisionConfig{Endpoint: "https://vision.example.com"}, &fakeObjectStore{})

	// Assert
	assert.Nil(t, client)
	assert.True(t, domainerrors.IsConfigurationError(err))
}

func TestVisionComplete_UploadsImageAndBuildsPrompt(t *testing.T) {
	// Arrange
	var received struct {
		Messages    []openai.ChatCompletionMessage `json:"messages"`
		MaxTokens   int                            `json:"max_tokens"`
		Temperature float32                        `json:"temperature"`
		TopP        float32                        `json:"top_p"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer vision-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID: "upstream-id",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "a cat"}},
			},
		})
	}))
	defer server.Close()

	store := &fakeObjectStore{url: "https://blobs.example.com/img.png?sig=abc"}
	client, err := completion.NewVisionClient(config.VisionConfig{
		Endpoint:   server.URL,
		Credential: "vision-key",
	}, store)
	require.NoError(t, err)
	client = client.WithHTTPClient(server.Client())

	// Act
	chunk, err := client.Complete(context.Background(), []models.Message{imageMessage("What is this?")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "vision-instruct-response", chunk.ID)
	assert.Equal(t, "a cat", chunk.Content)

	assert.Equal(t, []byte("png-bytes"), store.uploaded)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "Here is an image: https://blobs.example.com/img.png?sig=abc. What is this?", received.Messages[0].Content)
	assert.Equal(t, 2048, received.MaxTokens)
	assert.InDelta(t, 0.7, received.Temperature, 0.001)
	assert.InDelta(t, 1.0, received.TopP, 0.001)
}

func TestVisionComplete_MissingImage(t *testing.T) {
	// Arrange
	client, err := completion.NewVisionClient(config.VisionConfig{
		Endpoint:   "https://vision.example.com",
		Credential: "vision-key",
	}, &fakeObjectStore{})
	require.NoError(t, err)

	// Act
	chunk, err := client.Complete(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "no image here"},
	})

	// Assert
	assert.Nil(t, chunk)
	assert.True(t, domainerrors.IsValidationError(err))
}

func TestVisionComplete_MissingPromptText(t *testing.T) {
	// Arrange
	client, err := completion.NewVisionClient(config.VisionConfig{
		Endpoint:   "https://vision.example.com",
		Credential: "vision-key",
	}, &fakeObjectStore{})
	require.NoError(t, err)

	// Act
	chunk, err := client.Complete(context.Background(), []models.Message{imageMessage("")})

	// Assert
	assert.Nil(t, chunk)
	assert.True(t, domainerrors.IsValidationError(err))
}

func TestVisionComplete_UploadFailure(t *testing.T) {
	// Arrange
	store := &fakeObjectStore{err: assert.AnError}
	client, err := completion.NewVisionClient(config.VisionConfig{
		Endpoint:   "https://vision.example.com",
		Credential: "vision-key",
	}, store)
	require.NoError(t, err)

	// Act
	chunk, err := client.Complete(context.Background(), []models.Message{imageMessage("What is this?")})

	// Assert
	assert.Nil(t, chunk)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeUpstream, domainErr.Code)
}

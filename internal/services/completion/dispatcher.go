package completion

import (
	"context"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
)

// TextCompleter is the standard chat-completion path.
type TextCompleter interface {
	Create(ctx context.Context, req *ModelRequest) (*CompletionChunk, error)
	CreateStream(ctx context.Context, req *ModelRequest) (ChunkStream, error)
}

// VisionCompleter is the alternate path for messages that carry an image.
type VisionCompleter interface {
	Complete(ctx context.Context, messages []models.Message) (*CompletionChunk, error)
}

// Dispatcher routes a prepared request to the text or vision path. A single
// attempt, no retry: any transport or provider error propagates to the
// caller.
type Dispatcher struct {
	text   TextCompleter
	vision VisionCompleter
}

// NewDispatcher creates a dispatcher. vision may be nil when no vision
// model is configured; image-bearing requests then fail with a
// configuration error.
func NewDispatcher(text TextCompleter, vision VisionCompleter) *Dispatcher {
	return &Dispatcher{text: text, vision: vision}
}

// HasImage reports whether any message carries inline image data.
func HasImage(messages []models.Message) bool {
	for _, msg := range messages {
		if msg.ImageData != "" {
			return true
		}
	}
	return false
}

// Dispatch sends the request to the model. The original messages (with any
// image payloads) steer routing; the prepared request is what goes out on
// the text path. The returned stream must be closed by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req *ModelRequest, messages []models.Message) (ChunkStream, error) {
	if HasImage(messages) {
		log.Debug().Msg("image detected, using vision model")
		if d.vision == nil {
			return nil, domainerrors.NewConfigurationError("request carries an image but no vision model is configured")
		}
		chunk, err := d.vision.Complete(ctx, messages)
		if err != nil {
			return nil, err
		}
		return NewSingleChunkStream(chunk), nil
	}

	if req.Stream {
		return d.text.CreateStream(ctx, req)
	}

	chunk, err := d.text.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewSingleChunkStream(chunk), nil
}

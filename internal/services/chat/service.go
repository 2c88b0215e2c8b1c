package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/api/ndjson"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/completion"
)

// Dispatcher routes a prepared request to the model.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *completion.ModelRequest, messages []models.Message) (completion.ChunkStream, error)
}

// Service runs the chat pipeline end to end for one request.
type Service struct {
	builder    *Builder
	dispatcher Dispatcher
	streaming  bool
}

// NewService creates the chat service. streaming controls whether replies
// go out as NDJSON streams or single documents.
func NewService(builder *Builder, dispatcher Dispatcher, streaming bool) *Service {
	return &Service{
		builder:    builder,
		dispatcher: dispatcher,
		streaming:  streaming,
	}
}

// StreamingEnabled reports whether replies stream.
func (s *Service) StreamingEnabled() bool {
	return s.streaming
}

// Complete runs one non-streaming chat exchange and returns the reply
// document. Streamed upstream chunks, if any, are folded into one.
func (s *Service) Complete(ctx context.Context, messages []models.Message, pc PrepareContext, meta HistoryMetadata) (*WireResponse, error) {
	req, err := s.builder.Prepare(ctx, messages, pc)
	if err != nil {
		return nil, err
	}
	req.Stream = false

	stream, err := s.dispatcher.Dispatch(ctx, req, messages)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var (
		content strings.Builder
		id      string
	)
	for {
		chunk, err := stream.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if id == "" {
			id = chunk.ID
		}
		content.WriteString(chunk.Content)
	}

	return ToWireResponse(&completion.CompletionChunk{ID: id, Content: content.String()}, meta), nil
}

// Stream runs one streaming chat exchange, writing each chunk as one NDJSON
// line in arrival order. Client disconnects cancel the request context,
// which aborts the upstream read; the provider stream is always released.
func (s *Service) Stream(ctx context.Context, messages []models.Message, pc PrepareContext, meta HistoryMetadata, w *ndjson.Writer) error {
	req, err := s.builder.Prepare(ctx, messages, pc)
	if err != nil {
		return err
	}
	req.Stream = true

	stream, err := s.dispatcher.Dispatch(ctx, req, messages)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		chunk, err := stream.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Debug().Msg("client disconnected, aborting upstream stream")
				return nil
			}
			return err
		}

		if err := w.WriteObject(ToWireResponse(chunk, meta)); err != nil {
			// The client went away mid-stream; stop consuming upstream.
			log.Debug().Err(err).Msg("stream write failed, releasing upstream stream")
			return nil
		}
	}
}

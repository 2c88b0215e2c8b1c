package completion

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChunkStream reads completion chunks one at a time. Read returns io.EOF
// when the stream is exhausted; Close releases the underlying provider
// stream and must always be called.
type ChunkStream interface {
	Read() (*CompletionChunk, error)
	Close() error
}

// singleChunk adapts one completed result to the stream interface.
type singleChunk struct {
	chunk *CompletionChunk
	done  bool
}

// NewSingleChunkStream wraps one chunk as a stream of length one.
func NewSingleChunkStream(chunk *CompletionChunk) ChunkStream {
	return &singleChunk{chunk: chunk}
}

func (s *singleChunk) Read() (*CompletionChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.chunk, nil
}

func (s *singleChunk) Close() error {
	s.done = true
	return nil
}

// sseStream parses a server-sent-events completion response into chunks.
type sseStream struct {
	response *http.Response
	scanner  *bufio.Scanner
}

func newSSEStream(resp *http.Response) *sseStream {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{
		response: resp,
		scanner:  scanner,
	}
}

func (s *sseStream) Read() (*CompletionChunk, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil, io.EOF
		}

		var streamResp openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(payload), &streamResp); err != nil {
			// Skip keep-alive and other non-JSON payloads.
			continue
		}
		if len(streamResp.Choices) == 0 {
			continue
		}

		choice := streamResp.Choices[0]
		return &CompletionChunk{
			ID:           streamResp.ID,
			Content:      choice.Delta.Content,
			Role:         choice.Delta.Role,
			FinishReason: string(choice.FinishReason),
		}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	if s.response != nil && s.response.Body != nil {
		return s.response.Body.Close()
	}
	return nil
}

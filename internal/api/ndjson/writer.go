// Package ndjson provides newline-delimited JSON support for streaming
// chat responses.
package ndjson

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer writes newline-delimited JSON objects to an HTTP response.
type Writer struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new NDJSON writer and sets streaming headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "application/json-lines")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{
		writer:  w,
		flusher: flusher,
	}, nil
}

// WriteObject writes one JSON object followed by a newline and flushes it
// to the client immediately.
func (w *Writer) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// WriteError writes a terminal error line in the stream body. Headers have
// already been sent by this point, so the status stays 200.
func (w *Writer) WriteError(message string) error {
	return w.WriteObject(map[string]string{"error": message})
}

// Flush flushes the response writer.
func (w *Writer) Flush() {
	w.flusher.Flush()
}

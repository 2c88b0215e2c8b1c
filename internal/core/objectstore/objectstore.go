// Package objectstore defines the blob storage interface used for vision
// image uploads.
package objectstore

import "context"

// Store uploads binary objects and hands back time-limited read URLs.
type Store interface {
	// Upload stores the object and returns a URL that grants read access for
	// a short, configured validity window.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

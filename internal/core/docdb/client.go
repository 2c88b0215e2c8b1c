// Package docdb defines the document database client interface.
package docdb

import (
	"context"
)

// Client defines the interface for a document database client.
type Client interface {
	// Conversations returns the collection holding conversation and message
	// documents, partitioned by user ID.
	Conversations() Collection

	// EnsureIndexes creates the indexes the history store relies on.
	EnsureIndexes(ctx context.Context) error

	// Ping verifies the database connection.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close(ctx context.Context) error
}

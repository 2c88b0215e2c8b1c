// Package mongodb provides the MongoDB client implementation.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuschat/chat-service/internal/core/docdb"
)

// Client implements the docdb.Client interface for MongoDB and for Azure
// Cosmos DB accounts speaking the MongoDB protocol.
type Client struct {
	client        *mongo.Client
	conversations *Collection
	raw           *mongo.Collection
}

// ClientConfig holds MongoDB connection configuration.
type ClientConfig struct {
	URI            string
	DatabaseName   string
	CollectionName string
}

// NewClient creates a new MongoDB client.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if config.CollectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	raw := client.Database(config.DatabaseName).Collection(config.CollectionName)

	return &Client{
		client:        client,
		conversations: NewCollection(raw),
		raw:           raw,
	}, nil
}

// Conversations returns the conversation/message collection.
func (c *Client) Conversations() docdb.Collection {
	return c.conversations
}

// EnsureIndexes creates the indexes the history store queries rely on:
// lookups by user partition and ordered reads within a conversation.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "type", Value: 1},
				{Key: "updatedAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "conversationId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "id", Value: 1},
			},
		},
	}

	if _, err := c.raw.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Ping verifies the connection to MongoDB.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}

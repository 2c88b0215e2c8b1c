// Package history persists conversations and their messages in a per-user
// partitioned document store.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/campuschat/chat-service/internal/core/docdb"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
)

// ErrConversationNotFound reports a create-message against a conversation
// that does not exist or is not owned by the caller.
var ErrConversationNotFound = domainerrors.NewNotFoundError("conversation not found")

// DefaultListLimit caps conversation listings when the caller gives none.
const DefaultListLimit = 25

// Service is the history store adapter.
type Service struct {
	client         docdb.Client
	enableFeedback bool
}

// NewService creates a history service over the given document store.
func NewService(client docdb.Client, enableFeedback bool) *Service {
	return &Service{
		client:         client,
		enableFeedback: enableFeedback,
	}
}

// FeedbackEnabled reports whether message feedback is accepted.
func (s *Service) FeedbackEnabled() bool {
	return s.enableFeedback
}

// CreateConversation creates a conversation for the user.
func (s *Service) CreateConversation(ctx context.Context, id, userID, title string) (*models.Conversation, error) {
	conversation := models.NewConversation(id, userID, title)
	if _, err := s.client.Conversations().InsertOne(ctx, conversation); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to create conversation", err)
	}
	return conversation, nil
}

// CreateMessage persists one message under an existing conversation and
// bumps the conversation's updatedAt so listings sort by recency. Returns
// ErrConversationNotFound when the conversation is absent or owned by
// someone else.
func (s *Service) CreateMessage(ctx context.Context, id, userID, conversationID string, role models.MessageRole, content string) (*models.Message, error) {
	conversation, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	message := models.NewMessage(id, userID, conversationID, role, content)
	if _, err := s.client.Conversations().InsertOne(ctx, message); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to create message", err)
	}

	_, err = s.client.Conversations().UpdateOne(ctx,
		bson.M{"id": conversationID, "userId": userID, "type": models.DocTypeConversation},
		bson.M{"$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to touch conversation", err)
	}

	return message, nil
}

// GetConversations lists the user's conversations, most recently updated
// first.
func (s *Service) GetConversations(ctx context.Context, userID string, offset, limit int64) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	cursor, err := s.client.Conversations().Find(ctx,
		bson.M{"userId": userID, "type": models.DocTypeConversation},
		&docdb.FindOptions{
			Skip:  offset,
			Limit: limit,
			Sort:  bson.D{{Key: "updatedAt", Value: -1}},
		})
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to list conversations", err)
	}
	defer cursor.Close(ctx)

	conversations := make([]*models.Conversation, 0)
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to decode conversations", err)
	}
	return conversations, nil
}

// GetConversation fetches one conversation owned by the user, or nil when
// it does not exist.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	result := s.client.Conversations().FindOne(ctx,
		bson.M{"id": conversationID, "userId": userID, "type": models.DocTypeConversation})

	var conversation models.Conversation
	err := result.Decode(&conversation)
	if errors.Is(err, docdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to fetch conversation", err)
	}
	return &conversation, nil
}

// GetMessages returns a conversation's messages in creation order.
func (s *Service) GetMessages(ctx context.Context, userID, conversationID string) ([]*models.Message, error) {
	cursor, err := s.client.Conversations().Find(ctx,
		bson.M{"conversationId": conversationID, "userId": userID, "type": models.DocTypeMessage},
		&docdb.FindOptions{
			Sort: bson.D{{Key: "createdAt", Value: 1}},
		})
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to list messages", err)
	}
	defer cursor.Close(ctx)

	messages := make([]*models.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to decode messages", err)
	}
	return messages, nil
}

// UpdateMessageFeedback annotates one message with feedback. Returns nil
// when the message does not exist or is not owned by the caller.
func (s *Service) UpdateMessageFeedback(ctx context.Context, userID, messageID, feedback string) (*models.Message, error) {
	result, err := s.client.Conversations().UpdateOne(ctx,
		bson.M{"id": messageID, "userId": userID, "type": models.DocTypeMessage},
		bson.M{"$set": bson.M{"feedback": feedback, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to update message feedback", err)
	}
	if result.MatchedCount == 0 {
		return nil, nil
	}

	single := s.client.Conversations().FindOne(ctx,
		bson.M{"id": messageID, "userId": userID, "type": models.DocTypeMessage})
	var message models.Message
	if err := single.Decode(&message); err != nil {
		return nil, domainerrors.NewUpstreamError("failed to fetch updated message", err)
	}
	return &message, nil
}

// DeleteMessages removes every message under the conversation.
func (s *Service) DeleteMessages(ctx context.Context, userID, conversationID string) (int64, error) {
	result, err := s.client.Conversations().DeleteMany(ctx,
		bson.M{"conversationId": conversationID, "userId": userID, "type": models.DocTypeMessage})
	if err != nil {
		return 0, domainerrors.NewUpstreamError("failed to delete messages", err)
	}
	return result.DeletedCount, nil
}

// DeleteConversation removes the conversation and all of its messages,
// messages first so a partial failure never leaves orphans behind an
// unreachable conversation.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.DeleteMessages(ctx, userID, conversationID); err != nil {
		return err
	}

	_, err := s.client.Conversations().DeleteMany(ctx,
		bson.M{"id": conversationID, "userId": userID, "type": models.DocTypeConversation})
	if err != nil {
		return domainerrors.NewUpstreamError("failed to delete conversation", err)
	}
	return nil
}

// UpsertConversation writes the conversation back, inserting when absent.
func (s *Service) UpsertConversation(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	conversation.UpdatedAt = time.Now().UTC()
	_, err := s.client.Conversations().ReplaceOne(ctx,
		bson.M{"id": conversation.ID, "userId": conversation.UserID, "type": models.DocTypeConversation},
		conversation)
	if err != nil {
		return nil, domainerrors.NewUpstreamError("failed to upsert conversation", err)
	}
	return conversation, nil
}

// Ensure verifies the store is reachable and its indexes exist.
func (s *Service) Ensure(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return domainerrors.NewConfigurationError(fmt.Sprintf("history store is not reachable: %v", err))
	}
	if err := s.client.EnsureIndexes(ctx); err != nil {
		return domainerrors.NewConfigurationError(fmt.Sprintf("history store indexes could not be ensured: %v", err))
	}
	return nil
}

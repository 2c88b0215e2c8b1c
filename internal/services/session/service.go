// Package session provides cookie-backed browser sessions stored in the
// cache, carrying the caller's persona selection.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuschat/chat-service/internal/core/cache"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/pkg/encryption"
)

const (
	// DefaultSessionTTL is the default lifetime for a browser session.
	DefaultSessionTTL = 24 * time.Hour

	keyPrefix = "session:"
)

// Data is the per-session state kept in the cache.
type Data struct {
	UserID    string         `json:"userId"`
	Persona   models.Persona `json:"promptType"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Service manages browser sessions.
type Service interface {
	// Create starts a new session for the user and returns its ID.
	Create(ctx context.Context, userID string) (string, error)

	// Get retrieves a session, or nil if it does not exist or cannot be
	// decrypted.
	Get(ctx context.Context, sessionID string) (*Data, error)

	// SetPersona updates the persona stored in a session, creating the
	// session if it is missing.
	SetPersona(ctx context.Context, sessionID, userID string, persona models.Persona) error

	// Persona resolves the effective persona for a session, falling back to
	// the default one when the session is absent.
	Persona(ctx context.Context, sessionID string) models.Persona

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
}

type service struct {
	cache     cache.Cache
	encryptor encryption.Encryptor
	ttl       time.Duration
}

// Config holds the configuration for the session service.
type Config struct {
	Cache     cache.Cache
	Encryptor encryption.Encryptor
	TTL       time.Duration
}

// NewService creates a new session service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	return &service{
		cache:     cfg.Cache,
		encryptor: cfg.Encryptor,
		ttl:       ttl,
	}, nil
}

func (s *service) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	data := &Data{
		UserID:    userID,
		Persona:   models.PersonaDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store(ctx, sessionID, data); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get returns nil (not an error) when the entry is missing, undecryptable,
// or corrupted; stale entries are dropped so the caller starts fresh.
func (s *service) Get(ctx context.Context, sessionID string) (*Data, error) {
	encrypted, err := s.cache.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}
	if encrypted == nil {
		return nil, nil
	}

	decrypted, err := s.encryptor.DecryptString(string(encrypted))
	if err != nil {
		_, _ = s.cache.Delete(ctx, keyPrefix+sessionID)
		return nil, nil
	}

	var data Data
	if err := json.Unmarshal([]byte(decrypted), &data); err != nil {
		_, _ = s.cache.Delete(ctx, keyPrefix+sessionID)
		return nil, nil
	}
	return &data, nil
}

func (s *service) SetPersona(ctx context.Context, sessionID, userID string, persona models.Persona) error {
	data, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if data == nil {
		data = &Data{
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
	}

	data.Persona = persona
	data.UpdatedAt = time.Now().UTC()
	return s.store(ctx, sessionID, data)
}

func (s *service) Persona(ctx context.Context, sessionID string) models.Persona {
	if sessionID == "" {
		return models.PersonaDefault
	}
	data, err := s.Get(ctx, sessionID)
	if err != nil || data == nil {
		return models.PersonaDefault
	}
	return data.Persona
}

func (s *service) Delete(ctx context.Context, sessionID string) error {
	_, err := s.cache.Delete(ctx, keyPrefix+sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *service) store(ctx context.Context, sessionID string, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	encrypted, err := s.encryptor.EncryptString(string(raw))
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	if err := s.cache.Set(ctx, keyPrefix+sessionID, []byte(encrypted), s.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/api/handlers"
	"github.com/campuschat/chat-service/internal/mocks"
)

type stubCache struct {
	pingErr error
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) (bool, error) { return false, nil }

func (c *stubCache) Ping(ctx context.Context) error { return c.pingErr }

func (c *stubCache) Close() error { return nil }

func healthRequest(h *handlers.HealthHandler) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return w
}

func TestHealthz_AllDependenciesHealthy(t *testing.T) {
	// Arrange
	h := handlers.NewHealthHandler(&stubCache{}, mocks.NewMemoryDocDB())

	// Act
	w := healthRequest(h)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Dependencies["cache"])
	assert.Equal(t, "ok", body.Dependencies["history"])
}

func TestHealthz_UnreachableCacheIsDegraded(t *testing.T) {
	// Arrange
	h := handlers.NewHealthHandler(&stubCache{pingErr: errors.New("connection refused")}, nil)

	// Act
	w := healthRequest(h)

	// Assert
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unreachable", body.Dependencies["cache"])
}

func TestHealthz_UnreachableHistoryIsDegraded(t *testing.T) {
	// Arrange
	db := mocks.NewMemoryDocDB()
	db.PingErr = errors.New("server selection timeout")
	h := handlers.NewHealthHandler(&stubCache{}, db)

	// Act
	w := healthRequest(h)

	// Assert
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unreachable", body.Dependencies["history"])
}

func TestHealthz_NoOptionalDependencies(t *testing.T) {
	// Arrange
	h := handlers.NewHealthHandler(nil, nil)

	// Act
	w := healthRequest(h)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
}

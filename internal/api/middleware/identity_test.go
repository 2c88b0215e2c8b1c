package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/api/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func identityRouter(authEnabled bool) *gin.Engine {
	r := gin.New()
	identity := middleware.NewIdentityMiddleware(authEnabled)
	r.GET("/whoami", identity.Identify(), func(c *gin.Context) {
		user, _ := middleware.GetUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name})
	})
	return r
}

func TestIdentify_PrincipalHeaders(t *testing.T) {
	// Arrange
	router := identityRouter(true)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Ms-Client-Principal-Id", "user-1")
	req.Header.Set("X-Ms-Client-Principal-Name", "Alex Doe")

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["id"])
	assert.Equal(t, "Alex Doe", body["name"])
}

func TestIdentify_MissingPrincipalWithAuthEnabled(t *testing.T) {
	// Arrange
	router := identityRouter(true)

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	// Assert
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "authentication required", body["error"])
}

func TestIdentify_DevelopmentFallbackWhenAuthDisabled(t *testing.T) {
	// Arrange
	router := identityRouter(false)

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", body["id"])
	assert.Equal(t, "Local Development User", body["name"])
}

func TestGetUser_Unresolved(t *testing.T) {
	// Arrange
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// Act
	user, ok := middleware.GetUser(c)

	// Assert
	assert.False(t, ok)
	assert.Empty(t, user.ID)
}

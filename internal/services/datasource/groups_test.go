package datasource_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/services/datasource"
)

func TestResolveGroups_SinglePage(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["securityEnabledOnly"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []string{"g-1", "g-2"},
		})
	}))
	defer server.Close()

	resolver := datasource.NewGraphGroupResolverWithBaseURL(server.URL, server.Client())

	// Act
	groups, err := resolver.ResolveGroups(context.Background(), "user-token")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"g-1", "g-2"}, groups)
}

func TestResolveGroups_FollowsNextLink(t *testing.T) {
	// Arrange
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page2" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []string{"g-3"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"value":           []string{"g-1", "g-2"},
			"@odata.nextLink": server.URL + "/page2",
		})
	}))
	defer server.Close()

	resolver := datasource.NewGraphGroupResolverWithBaseURL(server.URL, server.Client())

	// Act
	groups, err := resolver.ResolveGroups(context.Background(), "user-token")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"g-1", "g-2", "g-3"}, groups)
}

func TestResolveGroups_RejectedToken(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver := datasource.NewGraphGroupResolverWithBaseURL(server.URL, server.Client())

	// Act
	groups, err := resolver.ResolveGroups(context.Background(), "expired-token")

	// Assert
	require.Error(t, err)
	assert.Nil(t, groups)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, domainErr.HTTPStatus)
}

func TestResolveGroups_UpstreamFailure(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := datasource.NewGraphGroupResolverWithBaseURL(server.URL, server.Client())

	// Act
	_, err := resolver.ResolveGroups(context.Background(), "user-token")

	// Assert
	require.Error(t, err)
	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeUpstream, domainErr.Code)
}

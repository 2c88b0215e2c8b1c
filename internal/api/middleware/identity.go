package middleware

import (
	"github.com/gin-gonic/gin"

	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
)

const (
	headerPrincipalID   = "X-Ms-Client-Principal-Id"
	headerPrincipalName = "X-Ms-Client-Principal-Name"

	// devUserID is the caller identity assumed when authentication is
	// disabled, typically local development behind no auth proxy.
	devUserID   = "00000000-0000-0000-0000-000000000000"
	devUserName = "Local Development User"

	userContextKey = "user"
)

// User is the authenticated caller derived from proxy headers.
type User struct {
	ID   string
	Name string
}

// IdentityMiddleware derives the caller identity from the EasyAuth-style
// principal headers set by the fronting proxy.
type IdentityMiddleware struct {
	authEnabled bool
}

// NewIdentityMiddleware creates a new IdentityMiddleware.
func NewIdentityMiddleware(authEnabled bool) *IdentityMiddleware {
	return &IdentityMiddleware{authEnabled: authEnabled}
}

// Identify returns a gin middleware that resolves the request user. When
// auth is disabled and no principal headers are present, a fixed
// development identity is assumed so the API stays usable locally.
func (m *IdentityMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := User{
			ID:   c.GetHeader(headerPrincipalID),
			Name: c.GetHeader(headerPrincipalName),
		}

		if user.ID == "" {
			if m.authEnabled {
				HandleError(c, domainerrors.NewUnauthorizedError("authentication required"))
				return
			}
			user.ID = devUserID
			user.Name = devUserName
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// GetUser retrieves the resolved user from the request context.
func GetUser(c *gin.Context) (User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return User{}, false
	}
	user, ok := v.(User)
	return user, ok
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
)

// ErrorMiddleware handles error recovery and formatting.
type ErrorMiddleware struct{}

// NewErrorMiddleware creates a new ErrorMiddleware.
func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

// Recovery returns a gin middleware that recovers from panics.
func (m *ErrorMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// ErrorResponse is the error body shape used across the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError maps an error to the appropriate HTTP response.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		if domainErr.HTTPStatus >= 500 {
			log.Error().Err(err).Str("code", domainErr.Code).Msg("request failed")
		}
		c.AbortWithStatusJSON(domainErr.HTTPStatus, ErrorResponse{
			Error: domainErr.Message,
		})
		return
	}

	log.Error().Err(err).Msg("unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
	})
}

// NotFound returns a 404 handler.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "resource not found",
		})
	}
}

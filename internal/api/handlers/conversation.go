// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/api/dto"
	"github.com/campuschat/chat-service/internal/api/middleware"
	"github.com/campuschat/chat-service/internal/api/ndjson"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/chat"
	"github.com/campuschat/chat-service/internal/services/session"
)

// accessTokenHeader carries the caller's directory access token, set by the
// fronting auth proxy. Used for document-level retrieval filters.
const accessTokenHeader = "X-Ms-Token-Aad-Access-Token"

// ConversationHandler handles the chat completion endpoints.
type ConversationHandler struct {
	chatService *chat.Service
	sessions    session.Service
	cookieName  string
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(chatService *chat.Service, sessions session.Service, cookieName string) *ConversationHandler {
	return &ConversationHandler{
		chatService: chatService,
		sessions:    sessions,
		cookieName:  cookieName,
	}
}

// Conversation handles POST /conversation.
func (h *ConversationHandler) Conversation(c *gin.Context) {
	req, ok := h.bindConversationRequest(c)
	if !ok {
		return
	}
	h.Respond(c, req.ToModels(), chat.HistoryMetadata{})
}

// bindConversationRequest enforces the JSON content type and decodes the
// body. It writes the error response itself when binding fails.
func (h *ConversationHandler) bindConversationRequest(c *gin.Context) (*dto.ConversationRequest, bool) {
	if !requireJSON(c) {
		return nil, false
	}

	var req dto.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("request body is not valid json"))
		return nil, false
	}
	return &req, true
}

// Respond runs the chat pipeline and writes the reply, streaming or not per
// the global toggle. History metadata is echoed into every wire object.
func (h *ConversationHandler) Respond(c *gin.Context, messages []models.Message, meta chat.HistoryMetadata) {
	ctx := c.Request.Context()
	pc := h.prepareContext(c)

	if !h.chatService.StreamingEnabled() {
		doc, err := h.chatService.Complete(ctx, messages, pc, meta)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
		return
	}

	writer, err := ndjson.NewWriter(c.Writer)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := h.chatService.Stream(ctx, messages, pc, meta, writer); err != nil {
		if !c.Writer.Written() {
			middleware.HandleError(c, err)
			return
		}
		// Headers are out; the best we can do is a terminal error line.
		log.Error().Err(err).Msg("stream failed mid-flight")
		_ = writer.WriteError(errorMessage(err))
	}
}

// prepareContext assembles the per-request builder inputs from the resolved
// user, the session persona, and the proxy access token.
func (h *ConversationHandler) prepareContext(c *gin.Context) chat.PrepareContext {
	user, _ := middleware.GetUser(c)

	persona := models.PersonaDefault
	if sid, err := c.Cookie(h.cookieName); err == nil && sid != "" {
		persona = h.sessions.Persona(c.Request.Context(), sid)
	}

	return chat.PrepareContext{
		UserID:      user.ID,
		Persona:     persona,
		AccessToken: c.GetHeader(accessTokenHeader),
	}
}

// requireJSON rejects non-JSON bodies with 415, writing the response
// itself.
func requireJSON(c *gin.Context) bool {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "application/json") {
		middleware.HandleError(c, domainerrors.NewUnsupportedMediaError("request must be json"))
		return false
	}
	return true
}

// errorMessage extracts the caller-safe message from an error.
func errorMessage(err error) string {
	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		return domainErr.Message
	}
	return "internal server error"
}

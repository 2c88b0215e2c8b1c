package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuschat/chat-service/internal/api/dto"
	"github.com/campuschat/chat-service/internal/api/middleware"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/chat"
	"github.com/campuschat/chat-service/internal/services/history"
	"github.com/campuschat/chat-service/internal/services/title"
)

// HistoryHandler handles the conversation history endpoints. history may be
// nil when no document store is configured; every endpoint then reports the
// store as unavailable, matching a deployment without persistence.
type HistoryHandler struct {
	history      *history.Service
	titles       *title.Generator
	conversation *ConversationHandler
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *history.Service, titles *title.Generator, conversation *ConversationHandler) *HistoryHandler {
	return &HistoryHandler{
		history:      historyService,
		titles:       titles,
		conversation: conversation,
	}
}

func (h *HistoryHandler) requireStore(c *gin.Context) bool {
	if h.history == nil {
		middleware.HandleError(c, domainerrors.NewConfigurationError("chat history database is not configured or not working"))
		return false
	}
	return true
}

// Generate handles POST /history/generate: persist the triggering user
// message (creating and titling the conversation if needed), then run the
// chat pipeline with the history metadata attached.
func (h *HistoryHandler) Generate(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	req, ok := h.conversation.bindConversationRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)
	messages := req.ToModels()

	meta := chat.HistoryMetadata{}
	conversationID := req.ConversationID
	if conversationID == "" {
		generatedTitle := h.titles.Generate(ctx, messages)
		conversation, err := h.history.CreateConversation(ctx, uuid.NewString(), user.ID, generatedTitle)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		conversationID = conversation.ID
		meta.Title = conversation.Title
		meta.Date = conversation.CreatedAt.Format("2006-01-02T15:04:05.000000Z")
	}

	if len(messages) == 0 || messages[len(messages)-1].Role != models.RoleUser {
		middleware.HandleError(c, domainerrors.NewValidationError("no user message found"))
		return
	}

	userMessage := messages[len(messages)-1]
	if _, err := h.history.CreateMessage(ctx, uuid.NewString(), user.ID, conversationID, models.RoleUser, userMessage.Content); err != nil {
		middleware.HandleError(c, err)
		return
	}

	meta.ConversationID = conversationID
	h.conversation.Respond(c, messages, meta)
}

// Update handles POST /history/update: persist the trailing assistant
// message, preceded by its tool message when one is present, preserving
// causal order.
func (h *HistoryHandler) Update(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	req, ok := h.conversation.bindConversationRequest(c)
	if !ok {
		return
	}
	if req.ConversationID == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("no conversation_id found"))
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)
	messages := req.ToModels()

	if len(messages) == 0 || messages[len(messages)-1].Role != models.RoleAssistant {
		middleware.HandleError(c, domainerrors.NewValidationError("no bot messages found"))
		return
	}

	if len(messages) > 1 && messages[len(messages)-2].Role == models.RoleTool {
		toolMessage := messages[len(messages)-2]
		if _, err := h.history.CreateMessage(ctx, uuid.NewString(), user.ID, req.ConversationID, models.RoleTool, toolMessage.Content); err != nil {
			middleware.HandleError(c, err)
			return
		}
	}

	assistantMessage := messages[len(messages)-1]
	messageID := assistantMessage.ID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	if _, err := h.history.CreateMessage(ctx, messageID, user.ID, req.ConversationID, models.RoleAssistant, assistantMessage.Content); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// MessageFeedback handles POST /history/message_feedback.
func (h *HistoryHandler) MessageFeedback(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	if !requireJSON(c) {
		return
	}

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("request body is not valid json"))
		return
	}
	if req.MessageID == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("message_id is required"))
		return
	}
	if req.MessageFeedback == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("message_feedback is required"))
		return
	}

	user, _ := middleware.GetUser(c)
	updated, err := h.history.UpdateMessageFeedback(c.Request.Context(), user.ID, req.MessageID, req.MessageFeedback)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if updated == nil {
		middleware.HandleError(c, domainerrors.NewNotFoundError(fmt.Sprintf(
			"unable to update message %s. It either does not exist or the user does not have access to it", req.MessageID)))
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message:   fmt.Sprintf("Successfully updated message with feedback %s", req.MessageFeedback),
		MessageID: req.MessageID,
	})
}

// Delete handles DELETE /history/delete: messages first, then the
// conversation record.
func (h *HistoryHandler) Delete(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	conversationID, ok := h.bindConversationRef(c)
	if !ok {
		return
	}

	user, _ := middleware.GetUser(c)
	if err := h.history.DeleteConversation(c.Request.Context(), user.ID, conversationID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message:        "Successfully deleted conversation and messages",
		ConversationID: conversationID,
	})
}

// List handles GET /history/list.
func (h *HistoryHandler) List(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	user, _ := middleware.GetUser(c)

	conversations, err := h.history.GetConversations(c.Request.Context(), user.ID, offset, history.DefaultListLimit)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, dto.NewConversationSummary(conversation))
	}
	c.JSON(http.StatusOK, summaries)
}

// Read handles POST /history/read.
func (h *HistoryHandler) Read(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	conversationID, ok := h.bindConversationRef(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)

	conversation, err := h.history.GetConversation(ctx, user.ID, conversationID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if conversation == nil {
		middleware.HandleError(c, notFoundConversation(conversationID))
		return
	}

	messages, err := h.history.GetMessages(ctx, user.ID, conversationID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConversationReadResponse{
		ConversationID: conversationID,
		Messages:       dto.NewConversationMessages(messages),
	})
}

// Rename handles POST /history/rename.
func (h *HistoryHandler) Rename(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	if !requireJSON(c) {
		return
	}

	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("request body is not valid json"))
		return
	}
	if req.ConversationID == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("conversation_id is required"))
		return
	}
	if req.Title == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("title is required"))
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)

	conversation, err := h.history.GetConversation(ctx, user.ID, req.ConversationID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if conversation == nil {
		middleware.HandleError(c, notFoundConversation(req.ConversationID))
		return
	}

	conversation.Title = req.Title
	updated, err := h.history.UpsertConversation(ctx, conversation)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewConversationSummary(updated))
}

// DeleteAll handles DELETE /history/delete_all: cascade-delete every
// conversation the user owns.
func (h *HistoryHandler) DeleteAll(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)

	for {
		conversations, err := h.history.GetConversations(ctx, user.ID, 0, history.DefaultListLimit)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		if len(conversations) == 0 {
			break
		}
		for _, conversation := range conversations {
			if err := h.history.DeleteConversation(ctx, user.ID, conversation.ID); err != nil {
				middleware.HandleError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message: fmt.Sprintf("Successfully deleted conversation and messages for user %s", user.ID),
	})
}

// Clear handles POST /history/clear: delete a conversation's messages while
// keeping the conversation record.
func (h *HistoryHandler) Clear(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	conversationID, ok := h.bindConversationRef(c)
	if !ok {
		return
	}

	user, _ := middleware.GetUser(c)
	if _, err := h.history.DeleteMessages(c.Request.Context(), user.ID, conversationID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message:        "Successfully deleted messages in conversation",
		ConversationID: conversationID,
	})
}

// Ensure handles GET /history/ensure: a health check on the history store.
func (h *HistoryHandler) Ensure(c *gin.Context) {
	if h.history == nil {
		middleware.HandleError(c, domainerrors.NewNotFoundError("chat history database is not configured"))
		return
	}

	if err := h.history.Ensure(c.Request.Context()); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "chat history database is configured and working"})
}

func (h *HistoryHandler) bindConversationRef(c *gin.Context) (string, bool) {
	if !requireJSON(c) {
		return "", false
	}

	var req dto.ConversationRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("request body is not valid json"))
		return "", false
	}
	if req.ConversationID == "" {
		middleware.HandleError(c, domainerrors.NewValidationError("conversation_id is required"))
		return "", false
	}
	return req.ConversationID, true
}

func notFoundConversation(conversationID string) error {
	return domainerrors.NewNotFoundError(fmt.Sprintf(
		"conversation %s was not found. It either does not exist or the logged in user does not have access to it", conversationID))
}

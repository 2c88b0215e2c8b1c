package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuschat/chat-service/internal/api/dto"
	"github.com/campuschat/chat-service/internal/api/middleware"
	"github.com/campuschat/chat-service/internal/config"
	domainerrors "github.com/campuschat/chat-service/internal/domain/errors"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/services/session"
)

// SettingsHandler serves frontend capability flags and the session-backed
// persona switch.
type SettingsHandler struct {
	cfg      *config.Config
	sessions session.Service
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(cfg *config.Config, sessions session.Service) *SettingsHandler {
	return &SettingsHandler{
		cfg:      cfg,
		sessions: sessions,
	}
}

// FrontendSettings handles GET /frontend_settings.
func (h *SettingsHandler) FrontendSettings(c *gin.Context) {
	ui := h.cfg.Frontend
	chatLogo := ui.ChatLogo
	if chatLogo == "" {
		chatLogo = ui.Logo
	}

	c.JSON(http.StatusOK, dto.FrontendSettings{
		AuthEnabled:     h.cfg.Auth.Enabled,
		FeedbackEnabled: h.cfg.History.EnableFeedback && h.cfg.History.Enabled(),
		UI: dto.FrontendUISettings{
			Title:           ui.Title,
			Logo:            ui.Logo,
			ChatLogo:        chatLogo,
			ChatTitle:       ui.ChatTitle,
			ChatDescription: ui.ChatDescription,
			ShowShareButton: ui.ShowShareButton,
		},
	})
}

// PromptSuggestions handles GET /api/prompt-suggestions.
func (h *SettingsHandler) PromptSuggestions(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PromptSuggestionsResponse{
		PromptSuggestions:        h.cfg.Frontend.PromptSuggestions,
		PromptSuggestionsShowNum: h.cfg.Frontend.PromptSuggestionsShow,
	})
}

// SetPromptTemplate handles POST /api/set_prompt_template: stores the
// requested persona in the caller's session, minting a session when the
// caller has none yet.
func (h *SettingsHandler) SetPromptTemplate(c *gin.Context) {
	if !requireJSON(c) {
		return
	}

	var req dto.PromptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("request body is not valid json"))
		return
	}

	ctx := c.Request.Context()
	user, _ := middleware.GetUser(c)
	persona := models.ParsePersona(req.PromptType)

	sid, err := c.Cookie(h.cfg.Session.CookieName)
	if err != nil || sid == "" {
		sid, err = h.sessions.Create(ctx, user.ID)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		c.SetCookie(h.cfg.Session.CookieName, sid, int(h.cfg.Session.TTL.Seconds()), "/", "", false, true)
	}

	if err := h.sessions.SetPersona(ctx, sid, user.ID, persona); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PromptTemplateResponse{PromptType: string(persona)})
}

// CheckSession handles GET /api/check_session.
func (h *SettingsHandler) CheckSession(c *gin.Context) {
	sid, err := c.Cookie(h.cfg.Session.CookieName)
	if err != nil || sid == "" {
		c.JSON(http.StatusNotFound, dto.SessionStatusResponse{
			Status:  "error",
			Message: "Session not found",
		})
		return
	}

	data, err := h.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, dto.SessionStatusResponse{
			Status:  "error",
			Message: "Session not found",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SessionStatusResponse{
		Status:  "success",
		Session: data,
	})
}

// Package routes defines the HTTP routes for the chat service.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/campuschat/chat-service/internal/api/handlers"
	"github.com/campuschat/chat-service/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler       *handlers.HealthHandler
	ConversationHandler *handlers.ConversationHandler
	HistoryHandler      *handlers.HistoryHandler
	SettingsHandler     *handlers.SettingsHandler
	IdentityMiddleware  *middleware.IdentityMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	// Unauthenticated surface
	r.GET("/healthz", cfg.HealthHandler.Healthz)
	r.GET("/frontend_settings", cfg.SettingsHandler.FrontendSettings)

	protected := r.Group("")
	protected.Use(cfg.IdentityMiddleware.Identify())
	{
		protected.POST("/conversation", cfg.ConversationHandler.Conversation)

		history := protected.Group("/history")
		{
			history.POST("/generate", cfg.HistoryHandler.Generate)
			history.POST("/update", cfg.HistoryHandler.Update)
			history.POST("/message_feedback", cfg.HistoryHandler.MessageFeedback)
			history.DELETE("/delete", cfg.HistoryHandler.Delete)
			history.GET("/list", cfg.HistoryHandler.List)
			history.POST("/read", cfg.HistoryHandler.Read)
			history.POST("/rename", cfg.HistoryHandler.Rename)
			history.DELETE("/delete_all", cfg.HistoryHandler.DeleteAll)
			history.POST("/clear", cfg.HistoryHandler.Clear)
			history.GET("/ensure", cfg.HistoryHandler.Ensure)
		}

		api := protected.Group("/api")
		{
			api.GET("/prompt-suggestions", cfg.SettingsHandler.PromptSuggestions)
			api.POST("/set_prompt_template", cfg.SettingsHandler.SetPromptTemplate)
			api.GET("/check_session", cfg.SettingsHandler.CheckSession)
		}
	}

	r.NoRoute(middleware.NotFound())
}

// SetupWithMiddleware configures global middleware then the routes.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	r.Use(errorMw.Recovery())
	r.Use(loggingMw.RequestLogger())
	r.Use(loggingMw.Logger())
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	Setup(r, cfg)
}

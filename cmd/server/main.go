package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campuschat/chat-service/internal/api/handlers"
	"github.com/campuschat/chat-service/internal/api/middleware"
	"github.com/campuschat/chat-service/internal/api/routes"
	"github.com/campuschat/chat-service/internal/config"
	"github.com/campuschat/chat-service/internal/core/cache"
	"github.com/campuschat/chat-service/internal/infrastructure/cache/redis"
	"github.com/campuschat/chat-service/internal/infrastructure/docdb/mongodb"
	"github.com/campuschat/chat-service/internal/infrastructure/storage/azblob"
	"github.com/campuschat/chat-service/internal/pkg/encryption"
	"github.com/campuschat/chat-service/internal/services/chat"
	"github.com/campuschat/chat-service/internal/services/completion"
	"github.com/campuschat/chat-service/internal/services/datasource"
	"github.com/campuschat/chat-service/internal/services/history"
	"github.com/campuschat/chat-service/internal/services/session"
	"github.com/campuschat/chat-service/internal/services/templates"
	"github.com/campuschat/chat-service/internal/services/title"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg.Log)

	cacheClient := createCacheClient(cfg)
	defer cacheClient.Close()

	docDBClient := createDocDBClient(cfg)
	if docDBClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = docDBClient.Close(ctx)
		}()
	}

	sessionService, err := session.NewService(&session.Config{
		Cache:     cacheClient,
		Encryptor: createEncryptor(cfg),
		TTL:       cfg.Session.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session service")
	}

	var groupResolver datasource.GroupResolver
	if cfg.Search.CognitiveSearch.PermittedGroupsColumn != "" {
		groupResolver = datasource.NewGraphGroupResolver()
	}
	selector := datasource.NewSelector(cfg.Search, cfg.OpenAI, groupResolver)
	if selector.Enabled() {
		log.Info().Str("backend", string(selector.Active())).Msg("retrieval enabled")
	}

	textClient, err := completion.NewClient(cfg.OpenAI, selector.Enabled())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion client")
	}

	dispatcher := completion.NewDispatcher(textClient, createVisionClient(cfg))

	builder := chat.NewBuilder(cfg.OpenAI, selector, templates.NewClient(cfg.Templates))
	chatService := chat.NewService(builder, dispatcher, cfg.OpenAI.Stream)

	// Titles always go through the plain completions path, even when
	// retrieval is on for conversations.
	titleClient, err := completion.NewClient(cfg.OpenAI, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create title completion client")
	}
	titleGenerator := title.NewGenerator(titleClient, cfg.OpenAI.Model)

	var historyService *history.Service
	if docDBClient != nil {
		historyService = history.NewService(docDBClient, cfg.History.EnableFeedback)
	}

	gin.SetMode(cfg.Server.GinMode)
	router := setupRouter(cfg, chatService, sessionService, historyService, titleGenerator, cacheClient, docDBClient)

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	go func() {
		log.Info().Str("address", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func createCacheClient(cfg *config.Config) *redis.Cache {
	cacheClient, err := redis.NewCache(redis.Config{
		Host:       cfg.Session.RedisHost,
		Port:       cfg.Session.RedisPort,
		Password:   cfg.Session.RedisPassword,
		DB:         cfg.Session.RedisDB,
		DefaultTTL: cfg.Session.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return cacheClient
}

// createDocDBClient connects to the history store. History is optional:
// when it is not configured the service runs without persistence.
func createDocDBClient(cfg *config.Config) *mongodb.Client {
	if !cfg.History.Enabled() {
		log.Info().Msg("chat history is not configured, running without persistence")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongodb.NewClient(ctx, &mongodb.ClientConfig{
		URI:            cfg.History.URI,
		DatabaseName:   cfg.History.Database,
		CollectionName: cfg.History.Container,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to history database")
	}

	if err := client.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure history indexes")
	}

	return client
}

func createEncryptor(cfg *config.Config) encryption.Encryptor {
	if cfg.Session.EncryptionKey == "" {
		log.Warn().Msg("SESSION_ENCRYPTION_KEY not set, session data will not be encrypted")
		return encryption.NewNoOpEncryptor()
	}

	encryptor, err := encryption.NewAESEncryptor(cfg.Session.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session encryption key")
	}
	return encryptor
}

// createVisionClient builds the vision path when a vision endpoint is
// configured, nil otherwise.
func createVisionClient(cfg *config.Config) completion.VisionCompleter {
	if cfg.Vision.Endpoint == "" {
		return nil
	}

	store, err := azblob.NewStore(azblob.Config{
		AccountName: cfg.Storage.AccountName,
		AccountKey:  cfg.Storage.AccountKey,
		Container:   cfg.Storage.Container,
		SASValidity: cfg.Storage.SASValidity,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create blob store for vision uploads")
	}

	visionClient, err := completion.NewVisionClient(cfg.Vision, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create vision client")
	}
	return visionClient
}

func setupRouter(
	cfg *config.Config,
	chatService *chat.Service,
	sessionService session.Service,
	historyService *history.Service,
	titleGenerator *title.Generator,
	cacheClient cache.Cache,
	docDBClient *mongodb.Client,
) *gin.Engine {
	router := gin.New()

	conversationHandler := handlers.NewConversationHandler(chatService, sessionService, cfg.Session.CookieName)

	routesCfg := &routes.Config{
		HealthHandler:       newHealthHandler(cacheClient, docDBClient),
		ConversationHandler: conversationHandler,
		HistoryHandler:      handlers.NewHistoryHandler(historyService, titleGenerator, conversationHandler),
		SettingsHandler:     handlers.NewSettingsHandler(cfg, sessionService),
		IdentityMiddleware:  middleware.NewIdentityMiddleware(cfg.Auth.Enabled),
	}

	routes.SetupWithMiddleware(router, routesCfg, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware())
	return router
}

// newHealthHandler avoids handing the health check a typed nil when the
// history store is absent.
func newHealthHandler(cacheClient cache.Cache, docDBClient *mongodb.Client) *handlers.HealthHandler {
	if docDBClient == nil {
		return handlers.NewHealthHandler(cacheClient, nil)
	}
	return handlers.NewHealthHandler(cacheClient, docDBClient)
}

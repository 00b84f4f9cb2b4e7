// HeadHunter Assistant API Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/agent"
	"github.com/Fib3301/HeadHunterAssistant/internal/api"
	"github.com/Fib3301/HeadHunterAssistant/internal/auth"
	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/config"
	"github.com/Fib3301/HeadHunterAssistant/internal/hh"
	"github.com/Fib3301/HeadHunterAssistant/internal/identity"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
	"github.com/Fib3301/HeadHunterAssistant/internal/middleware"
	"github.com/Fib3301/HeadHunterAssistant/internal/secure"
	"github.com/Fib3301/HeadHunterAssistant/internal/session"
	"github.com/Fib3301/HeadHunterAssistant/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port)

	// Initialize persistence.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	cipher, err := secure.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		slog.Error("Failed to initialize token cipher", "error", err)
		os.Exit(1)
	}

	// Initialize remote clients.
	hhClient, err := hh.New(hh.Config{
		BaseURL:   cfg.HH.APIBaseURL,
		UserAgent: cfg.HH.UserAgent,
		CacheSize: cfg.HH.ClientCacheSize,
		Timeout:   cfg.HH.RequestTimeout,
	})
	if err != nil {
		slog.Error("Failed to initialize job-board client", "error", err)
		os.Exit(1)
	}

	provider := auth.NewProvider(auth.ProviderConfig{
		ClientID:     cfg.HH.ClientID,
		ClientSecret: cfg.HH.ClientSecret,
		AuthURL:      cfg.HH.AuthURL,
		TokenURL:     cfg.HH.TokenURL,
		RedirectURL:  cfg.HH.RedirectURL,
	}, &http.Client{Timeout: cfg.HH.RequestTimeout})

	model := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		Model:              cfg.LLM.Model,
		Temperature:        cfg.LLM.Temperature,
		Timeout:            cfg.LLM.RequestTimeout,
		InsecureSkipVerify: cfg.LLM.InsecureSkipVerify,
	})
	if cfg.LLM.InsecureSkipVerify {
		slog.Warn("TLS verification disabled for the LLM endpoint")
	}

	// Initialize services.
	manager := auth.NewManager(auth.NewCredentialStore(repo, cipher), provider, hhClient)

	bundle, err := capability.LoadBundle()
	if err != nil {
		slog.Error("Failed to load capability bundle", "error", err)
		os.Exit(1)
	}
	auditSink := capability.NewStoreAuditSink(repo, 0)
	caps := append(capability.JobBoardCapabilities(hhClient, auditSink), capability.WritingCapabilities(model)...)
	dispatcher, err := capability.NewDispatcher(bundle, caps...)
	if err != nil {
		slog.Error("Failed to initialize tool dispatcher", "error", err)
		os.Exit(1)
	}
	slog.Info("Capabilities loaded", "count", len(bundle.Names()))

	registry := session.NewRegistry(session.Options{
		Timeout:      cfg.SessionTimeout,
		HistoryLimit: cfg.HistoryLimit,
		SystemPrompt: agent.SystemPrompt,
	})

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	pipeline := agent.NewPipeline(model, dispatcher, agent.NewHumanizer(model, cfg.LLM.HumanizerFallback))
	chatService := agent.NewService(registry, manager, func() (*capability.Bundle, error) {
		return bundle, nil
	}, pipeline, conversationLogger)

	rateLimiter := agent.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer rateLimiter.Close()

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, cfg.Timeout.HealthCheck)
	authHandler := api.NewAuthHandler(manager)
	chatHandler := agent.NewHandler(chatService, rateLimiter, cfg.RateLimit.MaxRequestBodySize)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware())

	// Public routes.
	healthHandler.RegisterHealth(r)
	authHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ChatWriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	// Start background workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.StartSweeper(ctx, cfg.SessionSweepInterval)
	capability.StartRetentionWorker(ctx, repo, cfg.AuditRetention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	auditSink.Wait()

	slog.Info("Server stopped successfully")
}

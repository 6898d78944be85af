package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clearbook/booking-assistant/internal/api/router"
	"github.com/clearbook/booking-assistant/internal/appointments"
	appconfig "github.com/clearbook/booking-assistant/internal/config"
	"github.com/clearbook/booking-assistant/internal/conversation"
	"github.com/clearbook/booking-assistant/internal/http/handlers"
	"github.com/clearbook/booking-assistant/internal/observability/metrics"
	"github.com/clearbook/booking-assistant/internal/sessions"
	"github.com/clearbook/booking-assistant/pkg/logging"
)

func main() {
	// .env is a local-dev convenience; missing is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"llm_enabled", cfg.LLMEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	var historyCache *conversation.HistoryCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			// The cache is optional; the database remains authoritative.
			logger.Warn("redis unreachable, transcript cache disabled", "error", err)
		} else {
			historyCache = conversation.NewHistoryCache(client)
		}
	}

	assistant := buildAssistant(ctx, cfg, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	convMetrics := metrics.NewConversationMetrics(registry)

	engine := conversation.NewEngine(
		appointments.NewRepository(pool),
		assistant,
		logger.Component("conversation"),
		convMetrics,
		conversation.Options{
			AssistantTimeout: cfg.LLMTimeout,
			AssistantRetries: cfg.LLMMaxRetries,
		},
	)

	chatHandler := handlers.NewChatHandler(
		sessions.NewRepository(pool),
		engine,
		historyHandlerStore(historyCache),
		logger.Component("http"),
	)

	r := router.New(&router.Config{
		Logger:             logger.Component("http"),
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  2,
		ChatBurst:          5,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildAssistant picks the LLM backend for the configured provider, falling
// back to the disabled assistant when no key is present. Startup never fails
// because of the LLM; the engine works deterministically without one.
func buildAssistant(ctx context.Context, cfg appconfig.Config, logger *logging.Logger) conversation.Assistant {
	if !cfg.LLMEnabled() {
		logger.Info("no LLM provider key configured, assistant disabled")
		return conversation.NoopAssistant{}
	}

	switch cfg.LLMProvider {
	case appconfig.ProviderGemini:
		assistant, err := conversation.NewGeminiAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini assistant unavailable, falling back to deterministic replies", "error", err)
			return conversation.NoopAssistant{}
		}
		return assistant
	case appconfig.ProviderKimi:
		assistant, err := conversation.NewOpenAIAssistant(conversation.OpenAIConfig{
			BaseURL: cfg.KimiBaseURL,
			APIKey:  cfg.KimiAPIKey,
			Model:   cfg.KimiModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			logger.Warn("kimi assistant unavailable, falling back to deterministic replies", "error", err)
			return conversation.NoopAssistant{}
		}
		return assistant
	default:
		assistant, err := conversation.NewOpenAIAssistant(conversation.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			logger.Warn("openai assistant unavailable, falling back to deterministic replies", "error", err)
			return conversation.NoopAssistant{}
		}
		return assistant
	}
}

// historyHandlerStore avoids handing the handler a typed nil when the cache
// is disabled.
func historyHandlerStore(cache *conversation.HistoryCache) handlers.HistoryStore {
	if cache == nil {
		return nil
	}
	return cache
}

// Package router assembles the chi router for the booking assistant API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearbook/booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/clearbook/booking-assistant/internal/http/middleware"
	"github.com/clearbook/booking-assistant/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit for the chat endpoint. Zero disables rate limiting.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.ChatHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	chat := r.Group(nil)
	if cfg.ChatRatePerSecond > 0 {
		burst := cfg.ChatBurst
		if burst <= 0 {
			burst = 5
		}
		chat.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, burst))
	}
	chat.Post("/chat", cfg.ChatHandler.Chat)
	chat.Get("/chat/sessions/{sessionID}/history", cfg.ChatHandler.History)

	return r
}

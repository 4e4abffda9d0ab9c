package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig configures the middleware stack
type RouterConfig struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	RateLimiter    *RateLimiter // nil disables rate limiting
	CORSOrigins    []string     // empty disables CORS
}

// NewRouter wires the handlers and middleware into a chi router
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Core middleware
	r.Use(RequestID)
	r.Use(Logging(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodySize)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(cfg.CORSOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Use(CallerContext)

	// Routes
	r.Get("/health", h.Health)

	r.Route("/rag", func(r chi.Router) {
		r.Post("/ingest", h.Ingest)
		r.Post("/query", h.Query)
		r.Get("/health", h.RAGHealth)
		r.Get("/documents", h.ListDocuments)
		r.Delete("/documents/{id}", h.DeleteDocument)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Post("/embed", h.Embed)
		r.Post("/draft", h.Draft)
		r.Post("/goals", h.Goals)
	})

	r.Route("/wizard", func(r chi.Router) {
		r.Get("/steps", h.WizardSteps)
		r.Get("/next", h.WizardNext)
		r.Get("/prev", h.WizardPrev)
	})

	return r
}

// Package service contains the knowledge-base business logic shared by the
// HTTP API and the MCP server.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MereWhiplash/aria/internal/chunker"
	"github.com/MereWhiplash/aria/internal/embedder"
	"github.com/MereWhiplash/aria/internal/llm"
	"github.com/MereWhiplash/aria/internal/storage"
)

// Service contains the business logic for ingestion, retrieval and drafting
type Service struct {
	storage   storage.Storage
	embedder  embedder.Embedder
	chunker   *chunker.Chunker
	completer llm.Completer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithChunker replaces the default sentence chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(s *Service) { s.chunker = c }
}

// WithCompleter enables the drafting operations
func WithCompleter(c llm.Completer) Option {
	return func(s *Service) { s.completer = c }
}

// WithLogger sets the logger; slog.Default is used otherwise
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new Service
func New(store storage.Storage, emb embedder.Embedder, opts ...Option) *Service {
	s := &Service{
		storage:  store,
		embedder: emb,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunker == nil {
		c, err := chunker.New(chunker.Config{
			Strategy: chunker.StrategySentence,
			Size:     chunker.DefaultSize,
			Overlap:  chunker.DefaultOverlap,
		})
		if err != nil {
			panic(fmt.Sprintf("default chunker config: %v", err))
		}
		s.chunker = c
	}
	if s.completer == nil {
		s.completer, _ = llm.New(context.Background(), llm.Config{Provider: "none"})
	}

	return s
}

// Health is the knowledge-base health report
type Health struct {
	Status    string        `json:"status"`
	Connected bool          `json:"connected"`
	Stats     storage.Stats `json:"stats"`
	Error     string        `json:"error,omitempty"`
}

// Healthy reports whether the store answered
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// Health queries the store for document and embedding counts
func (s *Service) Health(ctx context.Context) Health {
	stats, err := s.storage.Stats(ctx)
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	return Health{Status: "healthy", Connected: true, Stats: *stats}
}

// ListDocuments returns ingested documents, newest first
func (s *Service) ListDocuments(ctx context.Context, opts storage.ListOpts) ([]storage.Document, error) {
	if opts.Limit <= 0 {
		opts.Limit = storage.DefaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.storage.ListDocuments(ctx, opts)
}

// DeleteDocument removes a document and its chunks. It is also the cleanup
// path for partially ingested documents.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.storage.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", id)
	return nil
}

// Close cleans up resources
func (s *Service) Close() error {
	return s.storage.Close()
}

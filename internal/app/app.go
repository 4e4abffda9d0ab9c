// Package app wires storage, embedder, completer and chunker into a Service
// from a Config. It is shared by the API server and the MCP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MereWhiplash/aria/internal/chunker"
	"github.com/MereWhiplash/aria/internal/config"
	"github.com/MereWhiplash/aria/internal/embedder"
	"github.com/MereWhiplash/aria/internal/llm"
	"github.com/MereWhiplash/aria/internal/service"
	"github.com/MereWhiplash/aria/internal/storage"
)

// Build opens storage and creates the service. Closing the service closes
// the store.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	store, err := storage.New(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(ctx, cfg.EmbedderConfig())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	completer, err := llm.New(ctx, cfg.LLMConfig())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}

	ch, err := chunker.New(cfg.ChunkerConfig())
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("service configured",
		"storage", cfg.Storage.Driver,
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_dimensions", cfg.Embedding.Dimensions,
		"llm_provider", cfg.LLM.Provider,
		"chunk_strategy", ch.Config().Strategy,
		"chunk_size", ch.Config().Size,
	)

	return service.New(store, emb,
		service.WithChunker(ch),
		service.WithCompleter(completer),
		service.WithLogger(logger),
	), nil
}

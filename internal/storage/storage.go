package storage

import (
	"context"

	"github.com/MereWhiplash/aria/internal/types"
)

// Re-exported so callers of storage don't need to import types directly.
type (
	Document   = types.Document
	Chunk      = types.Chunk
	ChunkMatch = types.ChunkMatch
	Metadata   = types.Metadata
	SearchOpts = types.SearchOpts
	ListOpts   = types.ListOpts
	Stats      = types.Stats
)

// Default result limits
const (
	DefaultSearchLimit = 5
	DefaultListLimit   = 20
)

// Storage defines the interface for knowledge-base persistence.
//
// Search ranking is the backend's job: results come back sorted by
// descending similarity, each at or above opts.Threshold, at most opts.Limit
// of them, restricted to opts.Category when set.
type Storage interface {
	InsertDocument(ctx context.Context, doc Document) (*Document, error)
	InsertChunk(ctx context.Context, chunk Chunk, embedding []float32) error
	Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error)
	ListDocuments(ctx context.Context, opts ListOpts) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

func searchLimit(opts SearchOpts) int {
	if opts.Limit <= 0 {
		return DefaultSearchLimit
	}
	return opts.Limit
}

func listLimit(opts ListOpts) int {
	if opts.Limit <= 0 {
		return DefaultListLimit
	}
	return opts.Limit
}

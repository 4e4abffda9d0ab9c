package service

import (
	"context"
	"strings"

	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
)

// Query defaults
const (
	DefaultMatchCount = 5
	MaxMatchCount     = 50
	DefaultThreshold  = 0.7
)

// QueryParams is a retrieval request. A nil Threshold means DefaultThreshold.
type QueryParams struct {
	Query      string
	Category   string
	MatchCount int
	Threshold  *float64
}

// QueryResult holds ranked matches for a query
type QueryResult struct {
	Query   string               `json:"query"`
	Results []storage.ChunkMatch `json:"results"`
	Count   int                  `json:"count"`
}

func (p *QueryParams) normalize() error {
	if strings.TrimSpace(p.Query) == "" {
		return types.Validation("query", "is required")
	}

	switch {
	case p.MatchCount < 0:
		return types.Validation("matchCount", "must not be negative")
	case p.MatchCount == 0:
		p.MatchCount = DefaultMatchCount
	case p.MatchCount > MaxMatchCount:
		p.MatchCount = MaxMatchCount
	}

	if p.Threshold == nil {
		t := DefaultThreshold
		p.Threshold = &t
	}
	if *p.Threshold < 0 || *p.Threshold > 1 {
		return types.Validation("threshold", "must be between 0 and 1")
	}
	return nil
}

// Query embeds the query text and returns the nearest chunks at or above the
// threshold, best first. An embedding failure fails the whole query.
func (s *Service) Query(ctx context.Context, p QueryParams) (*QueryResult, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}

	embedding, err := s.embedder.EmbedForSearch(ctx, p.Query)
	if err != nil {
		return nil, &types.UpstreamError{Provider: "embedding", Op: "embed query", Err: err}
	}

	opts := storage.SearchOpts{
		Threshold: *p.Threshold,
		Limit:     p.MatchCount,
		Category:  strings.TrimSpace(p.Category),
	}

	matches, err := s.storage.Search(ctx, embedding, opts)
	if err != nil {
		return nil, err
	}

	// Backends that cannot filter natively are held to the same contract here.
	results := storage.Rank(matches, opts)

	s.logger.Debug("query served", "results", len(results), "threshold", opts.Threshold, "category", opts.Category)
	return &QueryResult{Query: p.Query, Results: results, Count: len(results)}, nil
}

// EmbedAssist embeds text for the interactive typing-assist path. Failures
// are logged and yield a nil vector.
func (s *Service) EmbedAssist(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	embedding, err := s.embedder.EmbedForSearch(ctx, text)
	if err != nil {
		s.logger.Warn("embed assist failed", "error", err)
		return nil
	}
	return embedding
}

package types_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MereWhiplash/aria/internal/types"
)

func TestPartialIngestionError_Unwrap(t *testing.T) {
	cause := &types.UpstreamError{Provider: "openai", Op: "embedding", Err: errors.New("timeout")}
	err := fmt.Errorf("ingest: %w", &types.PartialIngestionError{DocumentID: "doc-1", ChunksCreated: 2, Err: cause})

	var partial *types.PartialIngestionError
	if !errors.As(err, &partial) {
		t.Fatal("expected PartialIngestionError")
	}
	if partial.ChunksCreated != 2 {
		t.Errorf("expected 2 chunks created, got %d", partial.ChunksCreated)
	}

	var upstream *types.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatal("expected wrapped UpstreamError")
	}
	if upstream.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", upstream.Provider)
	}
}

func TestParseError_RawPrefix(t *testing.T) {
	short := &types.ParseError{Raw: "not json"}
	if short.RawPrefix() != "not json" {
		t.Errorf("expected raw unchanged, got %q", short.RawPrefix())
	}

	long := &types.ParseError{Raw: strings.Repeat("x", 500)}
	prefix := long.RawPrefix()
	if !strings.HasSuffix(prefix, "...") {
		t.Errorf("expected truncated prefix, got %d chars", len(prefix))
	}
	if len(prefix) != 203 {
		t.Errorf("expected 203 chars, got %d", len(prefix))
	}
}

func TestChunkMatch_MatchesCategory(t *testing.T) {
	m := types.ChunkMatch{
		DocumentType: "guideline",
		Metadata:     types.Metadata{"insurance_provider": "aetna"},
	}

	tests := []struct {
		category string
		want     bool
	}{
		{"", true},
		{"guideline", true},
		{"aetna", true},
		{"policy", false},
	}
	for _, tt := range tests {
		if got := m.MatchesCategory(tt.category); got != tt.want {
			t.Errorf("MatchesCategory(%q) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

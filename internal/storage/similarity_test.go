package storage

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRank(t *testing.T) {
	matches := []ChunkMatch{
		{ID: 1, Similarity: 0.5, DocumentType: "compliance"},
		{ID: 2, Similarity: 0.82, DocumentType: "compliance"},
		{ID: 3, Similarity: 0.95, DocumentType: "insurance", Metadata: Metadata{"insurance_provider": "aetna"}},
		{ID: 4, Similarity: -0.2, DocumentType: "compliance"},
		{ID: 5, Similarity: 0.75, DocumentType: "compliance"},
	}

	t.Run("threshold and order", func(t *testing.T) {
		got := Rank(matches, SearchOpts{Threshold: 0.7, Limit: 10})
		wantIDs := []int64{3, 2, 5}
		if len(got) != len(wantIDs) {
			t.Fatalf("expected %d results, got %d", len(wantIDs), len(got))
		}
		for i, id := range wantIDs {
			if got[i].ID != id {
				t.Errorf("position %d: expected id %d, got %d", i, id, got[i].ID)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		got := Rank(matches, SearchOpts{Limit: 2})
		if len(got) != 2 {
			t.Fatalf("expected 2 results, got %d", len(got))
		}
		if got[0].ID != 3 || got[1].ID != 2 {
			t.Errorf("expected top two by similarity, got %d, %d", got[0].ID, got[1].ID)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		if got := Rank(matches, SearchOpts{}); len(got) != DefaultSearchLimit {
			t.Errorf("expected %d results, got %d", DefaultSearchLimit, len(got))
		}
	})

	t.Run("negative similarity clamps to zero", func(t *testing.T) {
		got := Rank(matches, SearchOpts{Limit: 10})
		last := got[len(got)-1]
		if last.ID != 4 || last.Similarity != 0 {
			t.Errorf("expected clamped match last, got %+v", last)
		}
	})

	t.Run("category by provider", func(t *testing.T) {
		got := Rank(matches, SearchOpts{Category: "aetna", Limit: 10})
		if len(got) != 1 || got[0].ID != 3 {
			t.Errorf("expected only the aetna match, got %+v", got)
		}
	})
}

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
)

const testDims = 4

// runStorageSuite exercises the behaviour every backend must share.
func runStorageSuite(t *testing.T, open func(t *testing.T) storage.Storage) {
	t.Run("SearchRanksAndFilters", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		doc := insertDoc(t, store, "HIPAA overview", "compliance", "")
		vectors := [][]float32{
			{1, 0, 0, 0},
			{0.9, 0.1, 0, 0},
			{0, 1, 0, 0},
		}
		for i, v := range vectors {
			insertChunk(t, store, doc.ID, i, v)
		}

		results, err := store.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOpts{Threshold: 0.5, Limit: 5})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}

		if len(results) != 2 {
			t.Fatalf("expected 2 results above threshold, got %d", len(results))
		}
		if results[0].ChunkIndex != 0 || results[1].ChunkIndex != 1 {
			t.Errorf("unexpected order: %d, %d", results[0].ChunkIndex, results[1].ChunkIndex)
		}
		for i, r := range results {
			if r.Similarity < 0.5 || r.Similarity > 1.0001 {
				t.Errorf("result %d similarity %f out of range", i, r.Similarity)
			}
			if i > 0 && r.Similarity > results[i-1].Similarity {
				t.Errorf("results not descending at %d", i)
			}
			if r.DocumentTitle != "HIPAA overview" {
				t.Errorf("expected document title, got %q", r.DocumentTitle)
			}
		}
	})

	t.Run("SearchLimit", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		doc := insertDoc(t, store, "Guidelines", "guideline", "")
		for i := 0; i < 6; i++ {
			insertChunk(t, store, doc.ID, i, []float32{1, float32(i) * 0.01, 0, 0})
		}

		results, err := store.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOpts{Limit: 3})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
	})

	t.Run("SearchCategory", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		medicaid := insertDoc(t, store, "Medicaid rules", "insurance", "medicaid")
		hipaa := insertDoc(t, store, "HIPAA", "compliance", "")
		insertChunk(t, store, medicaid.ID, 0, []float32{1, 0, 0, 0})
		insertChunk(t, store, hipaa.ID, 0, []float32{1, 0, 0, 0})

		byProvider, err := store.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOpts{Category: "medicaid"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(byProvider) != 1 || byProvider[0].DocumentID != medicaid.ID {
			t.Errorf("expected only the medicaid document, got %+v", byProvider)
		}

		byType, err := store.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOpts{Category: "compliance"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(byType) != 1 || byType[0].DocumentID != hipaa.ID {
			t.Errorf("expected only the compliance document, got %+v", byType)
		}
	})

	t.Run("ListDocuments", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		insertDoc(t, store, "One", "compliance", "")
		insertDoc(t, store, "Two", "compliance", "")
		insertDoc(t, store, "Three", "insurance", "aetna")

		all, err := store.ListDocuments(ctx, storage.ListOpts{Limit: 10})
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 documents, got %d", len(all))
		}

		filtered, err := store.ListDocuments(ctx, storage.ListOpts{Limit: 10, Category: "aetna"})
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Title != "Three" {
			t.Errorf("expected only Three, got %+v", filtered)
		}

		paged, err := store.ListDocuments(ctx, storage.ListOpts{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(paged) != 1 {
			t.Errorf("expected 1 document on second page, got %d", len(paged))
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		doc := insertDoc(t, store, "Temp", "compliance", "")
		insertChunk(t, store, doc.ID, 0, []float32{1, 0, 0, 0})
		insertChunk(t, store, doc.ID, 1, []float32{0, 1, 0, 0})

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.DocumentsCount != 1 || stats.EmbeddingsCount != 2 {
			t.Errorf("unexpected stats before delete: %+v", stats)
		}

		if err := store.DeleteDocument(ctx, doc.ID); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}

		stats, err = store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.DocumentsCount != 0 || stats.EmbeddingsCount != 0 {
			t.Errorf("expected empty store after delete, got %+v", stats)
		}
	})

	t.Run("DeleteKeepsOtherDocuments", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		gone := insertDoc(t, store, "Superseded policy", "billing", "")
		insertChunk(t, store, gone.ID, 0, []float32{1, 0, 0, 0})
		kept := insertDoc(t, store, "Current policy", "billing", "")
		insertChunk(t, store, kept.ID, 0, []float32{0, 1, 0, 0})

		if err := store.DeleteDocument(ctx, gone.ID); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if err := store.DeleteDocument(ctx, gone.ID); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.DocumentsCount != 1 || stats.EmbeddingsCount != 1 {
			t.Errorf("expected only the kept document to remain, got %+v", stats)
		}

		results, err := store.Search(ctx, []float32{0, 1, 0, 0}, storage.SearchOpts{Threshold: 0.5, Limit: 5})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].DocumentID != kept.ID {
			t.Errorf("expected the kept document's chunk, got %+v", results)
		}
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		store := open(t)

		err := store.DeleteDocument(context.Background(), uuid.NewString())
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func insertDoc(t *testing.T, store storage.Storage, title, docType, provider string) *storage.Document {
	t.Helper()
	doc, err := store.InsertDocument(context.Background(), storage.Document{
		ID:                uuid.NewString(),
		Title:             title,
		Content:           title + " content",
		DocumentType:      docType,
		InsuranceProvider: provider,
		Metadata:          storage.Metadata{"source": "test"},
	})
	if err != nil {
		t.Fatalf("InsertDocument failed: %v", err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	return doc
}

func insertChunk(t *testing.T, store storage.Storage, docID string, index int, vec []float32) {
	t.Helper()
	err := store.InsertChunk(context.Background(), storage.Chunk{
		DocumentID: docID,
		ChunkIndex: index,
		Text:       "chunk text",
		Metadata:   storage.Metadata{"chunk_length": 10},
	}, vec)
	if err != nil {
		t.Fatalf("InsertChunk %d failed: %v", index, err)
	}
}

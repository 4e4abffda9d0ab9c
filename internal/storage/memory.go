package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MereWhiplash/aria/internal/types"
)

// Memory is an in-process Storage for development and tests. Nothing
// survives a restart.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]Document
	chunks []memoryChunk
	nextID int64
}

type memoryChunk struct {
	id        int64
	chunk     Chunk
	embedding []float32
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) InsertDocument(ctx context.Context, doc Document) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[doc.ID]; exists {
		return nil, fmt.Errorf("document %s already exists", doc.ID)
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	m.docs[doc.ID] = doc

	out := doc
	return &out, nil
}

func (m *Memory) InsertChunk(ctx context.Context, chunk Chunk, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[chunk.DocumentID]; !ok {
		return fmt.Errorf("document %s: %w", chunk.DocumentID, types.ErrNotFound)
	}

	m.nextID++
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	m.chunks = append(m.chunks, memoryChunk{id: m.nextID, chunk: chunk, embedding: vec})
	return nil
}

func (m *Memory) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]ChunkMatch, 0, len(m.chunks))
	for _, c := range m.chunks {
		doc := m.docs[c.chunk.DocumentID]
		if opts.Category != "" && doc.DocumentType != opts.Category && doc.InsuranceProvider != opts.Category {
			continue
		}
		matches = append(matches, ChunkMatch{
			ID:            c.id,
			Text:          c.chunk.Text,
			Similarity:    CosineSimilarity(embedding, c.embedding),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			DocumentType:  doc.DocumentType,
			ChunkIndex:    c.chunk.ChunkIndex,
			Metadata:      c.chunk.Metadata,
		})
	}

	opts.Category = ""
	return Rank(matches, opts), nil
}

func (m *Memory) ListDocuments(ctx context.Context, opts ListOpts) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		if opts.Category != "" && d.DocumentType != opts.Category && d.InsuranceProvider != opts.Category {
			continue
		}
		d.Content = ""
		docs = append(docs, d)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if opts.Offset >= len(docs) {
		return nil, nil
	}
	docs = docs[opts.Offset:]
	if limit := listLimit(opts); len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *Memory) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	delete(m.docs, id)

	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.chunk.DocumentID != id {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *Memory) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Stats{
		DocumentsCount:  int64(len(m.docs)),
		EmbeddingsCount: int64(len(m.chunks)),
	}, nil
}

// Chunks returns the stored chunks of a document in insertion order
func (m *Memory) Chunks(documentID string) []Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Chunk
	for _, c := range m.chunks {
		if c.chunk.DocumentID == documentID {
			out = append(out, c.chunk)
		}
	}
	return out
}

func (m *Memory) Close() error {
	return nil
}

// Package types contains shared data types that have no CGO dependencies.
// This allows packages like the shim and client to use Document and ChunkMatch
// without pulling in sqlite-vec.
package types

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a document is not found
var ErrNotFound = errors.New("document not found")

// Metadata is free-form JSON metadata attached to documents and chunks
type Metadata map[string]any

// Document represents an ingested knowledge-base document
type Document struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Content           string    `json:"content,omitempty"`
	DocumentType      string    `json:"documentType"`
	InsuranceProvider string    `json:"insuranceProvider,omitempty"`
	Metadata          Metadata  `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Chunk is one embedded segment of a document. ChunkIndex is dense and
// 0-based per document, in chunker order.
type Chunk struct {
	DocumentID string   `json:"documentId"`
	ChunkIndex int      `json:"chunkIndex"`
	Text       string   `json:"text"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// ChunkMatch is a similarity search hit. It is never persisted.
type ChunkMatch struct {
	ID            int64    `json:"id"`
	Text          string   `json:"text"`
	Similarity    float64  `json:"similarity"`
	DocumentID    string   `json:"documentId"`
	DocumentTitle string   `json:"documentTitle"`
	DocumentType  string   `json:"documentType"`
	ChunkIndex    int      `json:"chunkIndex"`
	Metadata      Metadata `json:"metadata,omitempty"`
}

// SearchOpts configures similarity search
type SearchOpts struct {
	Threshold float64
	Limit     int
	Category  string // matches document_type or insurance_provider
}

// ListOpts configures document listing
type ListOpts struct {
	Limit    int
	Offset   int
	Category string
}

// Stats reports store contents for health checks
type Stats struct {
	DocumentsCount  int64 `json:"documentsCount"`
	EmbeddingsCount int64 `json:"embeddingsCount"`
}

// MatchesCategory reports whether the match belongs to category, either by
// document type or by the insurance_provider metadata key.
func (m ChunkMatch) MatchesCategory(category string) bool {
	if category == "" {
		return true
	}
	if m.DocumentType == category {
		return true
	}
	if p, ok := m.Metadata["insurance_provider"].(string); ok && p == category {
		return true
	}
	return false
}

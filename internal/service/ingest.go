package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
)

// IngestParams is an ingestion request
type IngestParams struct {
	Title             string
	Content           string
	Category          string
	InsuranceProvider string
	Metadata          storage.Metadata
	UploadedBy        string
	OrgID             string
}

// IngestResult reports a completed ingestion
type IngestResult struct {
	DocumentID    string `json:"documentId"`
	ChunksCreated int    `json:"chunksCreated"`
}

func (p IngestParams) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return types.Validation("title", "is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return types.Validation("content", "is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return types.Validation("category", "is required")
	}
	return nil
}

// Ingest stores a document and embeds its chunks one at a time, in order.
//
// If an embedding or chunk write fails, ingestion stops and a
// *types.PartialIngestionError reports how many chunks were written. Those
// chunks and the document row stay in the store; DeleteDocument removes them.
func (s *Service) Ingest(ctx context.Context, p IngestParams) (*IngestResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	chunks := s.chunker.Split(p.Content)
	if len(chunks) == 0 {
		return nil, types.Validation("content", "produced no chunks")
	}

	meta := storage.Metadata{}
	for k, v := range p.Metadata {
		meta[k] = v
	}
	if p.UploadedBy != "" {
		meta["uploaded_by"] = p.UploadedBy
	}
	if p.OrgID != "" {
		meta["org_id"] = p.OrgID
	}

	doc, err := s.storage.InsertDocument(ctx, storage.Document{
		ID:                uuid.NewString(),
		Title:             strings.TrimSpace(p.Title),
		Content:           p.Content,
		DocumentType:      strings.TrimSpace(p.Category),
		InsuranceProvider: strings.TrimSpace(p.InsuranceProvider),
		Metadata:          meta,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	log := s.logger.With("document_id", doc.ID)
	log.Info("ingesting document", "title", doc.Title, "chunks", len(chunks))

	for i, text := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, s.partial(doc.ID, i, err)
		}

		embedding, err := s.embedder.EmbedForStorage(ctx, text)
		if err != nil {
			return nil, s.partial(doc.ID, i, &types.UpstreamError{Provider: "embedding", Op: "embed chunk", Err: err})
		}

		chunk := storage.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       text,
			Metadata:   chunkMetadata(p, doc, text),
		}
		if err := s.storage.InsertChunk(ctx, chunk, embedding); err != nil {
			return nil, s.partial(doc.ID, i, err)
		}
	}

	log.Info("document ingested", "chunks_created", len(chunks))
	return &IngestResult{DocumentID: doc.ID, ChunksCreated: len(chunks)}, nil
}

func (s *Service) partial(docID string, created int, err error) error {
	s.logger.Error("ingestion stopped", "document_id", docID, "chunks_created", created, "error", err)
	return &types.PartialIngestionError{DocumentID: docID, ChunksCreated: created, Err: err}
}

// chunkMetadata merges the per-chunk keys over the request metadata
func chunkMetadata(p IngestParams, doc *storage.Document, text string) storage.Metadata {
	meta := storage.Metadata{}
	for k, v := range p.Metadata {
		meta[k] = v
	}
	meta["category"] = doc.DocumentType
	meta["title"] = doc.Title
	if doc.InsuranceProvider != "" {
		meta["insurance_provider"] = doc.InsuranceProvider
	}
	meta["chunk_length"] = utf8.RuneCountInString(text)
	return meta
}

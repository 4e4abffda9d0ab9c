package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/MereWhiplash/aria/internal/types"
)

// Postgres implements Storage using PostgreSQL with pgvector
type Postgres struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPostgres creates a new Postgres storage
func NewPostgres(ctx context.Context, dsn string, dimensions int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{pool: pool, dimensions: dimensions}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			document_type TEXT NOT NULL,
			insurance_provider TEXT,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS document_embeddings (
			id BIGSERIAL PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			UNIQUE (document_id, chunk_index)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);
		CREATE INDEX IF NOT EXISTS idx_documents_provider ON documents(insurance_provider);
		CREATE INDEX IF NOT EXISTS idx_embeddings_document ON document_embeddings(document_id);

		CREATE INDEX IF NOT EXISTS idx_embeddings_vector
		ON document_embeddings USING hnsw (embedding vector_cosine_ops);

		CREATE OR REPLACE FUNCTION match_document_chunks(
			query_embedding vector(%d),
			match_threshold FLOAT,
			match_count INT,
			filter_category TEXT DEFAULT NULL
		)
		RETURNS TABLE (
			id BIGINT,
			chunk_text TEXT,
			similarity FLOAT,
			document_id UUID,
			document_title TEXT,
			document_type TEXT,
			chunk_index INTEGER,
			metadata JSONB
		)
		LANGUAGE sql STABLE
		AS $$
			SELECT e.id, e.chunk_text,
			       1 - (e.embedding <=> query_embedding) AS similarity,
			       d.id, d.title, d.document_type, e.chunk_index, e.metadata
			FROM document_embeddings e
			JOIN documents d ON d.id = e.document_id
			WHERE 1 - (e.embedding <=> query_embedding) >= match_threshold
			  AND (filter_category IS NULL
			       OR d.document_type = filter_category
			       OR d.insurance_provider = filter_category)
			ORDER BY e.embedding <=> query_embedding
			LIMIT match_count;
		$$;
	`, p.dimensions, p.dimensions)
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) InsertDocument(ctx context.Context, doc Document) (*Document, error) {
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return nil, err
	}

	var provider *string
	if doc.InsuranceProvider != "" {
		provider = &doc.InsuranceProvider
	}

	var createdAt, updatedAt time.Time
	err = p.pool.QueryRow(ctx,
		`INSERT INTO documents (id, title, content, document_type, insurance_provider, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		doc.ID, doc.Title, doc.Content, doc.DocumentType, provider, meta,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	out := doc
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return &out, nil
}

func (p *Postgres) InsertChunk(ctx context.Context, chunk Chunk, embedding []float32) error {
	meta, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO document_embeddings (document_id, chunk_index, chunk_text, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		chunk.DocumentID, chunk.ChunkIndex, chunk.Text, pgvector.NewVector(embedding), meta,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
	}
	return nil
}

func (p *Postgres) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	var category *string
	if opts.Category != "" {
		category = &opts.Category
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, chunk_text, similarity, document_id::text, document_title,
		        document_type, chunk_index, metadata
		 FROM match_document_chunks($1, $2, $3, $4)`,
		pgvector.NewVector(embedding), opts.Threshold, searchLimit(opts), category,
	)
	if err != nil {
		return nil, fmt.Errorf("match_document_chunks: %w", err)
	}
	defer rows.Close()

	var matches []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Text, &m.Similarity, &m.DocumentID, &m.DocumentTitle,
			&m.DocumentType, &m.ChunkIndex, &meta); err != nil {
			return nil, err
		}
		if m.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		m.Similarity = clampSimilarity(m.Similarity)
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (p *Postgres) ListDocuments(ctx context.Context, opts ListOpts) ([]Document, error) {
	query := `
		SELECT id::text, title, document_type, COALESCE(insurance_provider, ''),
		       metadata, created_at, updated_at
		FROM documents
	`
	args := []interface{}{}
	argNum := 1

	if opts.Category != "" {
		query += fmt.Sprintf(" WHERE document_type = $%d OR insurance_provider = $%d", argNum, argNum)
		args = append(args, opts.Category)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, listLimit(opts), opts.Offset)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var meta []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.DocumentType, &d.InsuranceProvider,
			&meta, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if d.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

func (p *Postgres) DeleteDocument(ctx context.Context, id string) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE id::text = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}

	return nil
}

func (p *Postgres) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := p.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM document_embeddings)`,
	).Scan(&s.DocumentsCount, &s.EmbeddingsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func marshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

func unmarshalMetadata(b []byte) (Metadata, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

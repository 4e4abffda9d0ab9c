package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MereWhiplash/aria/internal/types"
)

// SQLite implements Storage on a single SQLite file. The vector table and
// similarity search differ between cgo builds (sqlite-vec) and pure-Go builds;
// see sqlite_vec.go and sqlite_nocgo.go.
type SQLite struct {
	conn       *sql.DB
	dimensions int
}

// NewSQLite creates a new SQLite storage
func NewSQLite(path string, dimensions int) (*SQLite, error) {
	conn, err := openSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &SQLite{conn: conn, dimensions: dimensions}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			document_type TEXT NOT NULL,
			insurance_provider TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS document_chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id),
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			UNIQUE (document_id, chunk_index)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(document_type);
		CREATE INDEX IF NOT EXISTS idx_documents_provider ON documents(insurance_provider);
		CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}

	_, err := s.conn.Exec(embeddingSchema(s.dimensions))
	return err
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) InsertDocument(ctx context.Context, doc Document) (*Document, error) {
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, document_type, insurance_provider, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, doc.DocumentType, nullString(doc.InsuranceProvider),
		string(meta), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	out := doc
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *SQLite) InsertChunk(ctx context.Context, chunk Chunk, embedding []float32) error {
	meta, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	vec, err := encodeEmbedding(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO document_chunks (document_id, chunk_index, chunk_text, metadata) VALUES (?, ?, ?, ?)`,
		chunk.DocumentID, chunk.ChunkIndex, chunk.Text, string(meta),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES (?, ?)`,
		id, vec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) ListDocuments(ctx context.Context, opts ListOpts) ([]Document, error) {
	query := `
		SELECT id, title, document_type, COALESCE(insurance_provider, ''), metadata, created_at, updated_at
		FROM documents
	`
	args := []interface{}{}

	if opts.Category != "" {
		query += " WHERE document_type = ? OR insurance_provider = ?"
		args = append(args, opts.Category, opts.Category)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, listLimit(opts), opts.Offset)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var meta string
		if err := rows.Scan(&d.ID, &d.Title, &d.DocumentType, &d.InsuranceProvider, &meta, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if d.Metadata, err = unmarshalMetadata([]byte(meta)); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// DeleteDocument removes the document and its chunks. The vector table cannot
// carry a foreign key, so the cascade is done by hand.
func (s *SQLite) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM chunk_embeddings WHERE chunk_id IN (SELECT id FROM document_chunks WHERE document_id = ?)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}

	return tx.Commit()
}

func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM document_chunks)`,
	).Scan(&st.DocumentsCount, &st.EmbeddingsCount)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// scanMatches reads rows shaped as
// (chunk id, text, similarity, document id, title, type, chunk index, metadata).
func scanMatches(rows *sql.Rows) ([]ChunkMatch, error) {
	defer rows.Close()

	var matches []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		var meta string
		if err := rows.Scan(&m.ID, &m.Text, &m.Similarity, &m.DocumentID, &m.DocumentTitle,
			&m.DocumentType, &m.ChunkIndex, &meta); err != nil {
			return nil, err
		}
		var err error
		if m.Metadata, err = unmarshalMetadata([]byte(meta)); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

//go:build cgo

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func openSQLite(path string) (*sql.DB, error) {
	sqlite_vec.Auto()
	return sql.Open("sqlite3", path)
}

func embeddingSchema(dimensions int) string {
	return fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding FLOAT[%d]
		);
	`, dimensions)
}

func encodeEmbedding(embedding []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(embedding)
}

func (s *SQLite) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	vec, err := encodeEmbedding(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding: %w", err)
	}

	query := `
		SELECT c.id, c.chunk_text, 1 - vec_distance_cosine(e.embedding, ?) AS similarity,
		       d.id, d.title, d.document_type, c.chunk_index, c.metadata
		FROM chunk_embeddings e
		JOIN document_chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE 1 - vec_distance_cosine(e.embedding, ?) >= ?
	`
	args := []interface{}{vec, vec, opts.Threshold}

	if opts.Category != "" {
		query += " AND (d.document_type = ? OR d.insurance_provider = ?)"
		args = append(args, opts.Category, opts.Category)
	}

	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, searchLimit(opts))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Similarity = clampSimilarity(matches[i].Similarity)
	}
	return matches, nil
}

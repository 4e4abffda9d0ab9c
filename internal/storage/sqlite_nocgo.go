//go:build !cgo

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// Pure-Go builds have no sqlite-vec, so vectors live in a plain table as
// little-endian float32 blobs and are ranked in process.

func openSQLite(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

func embeddingSchema(int) string {
	return `
		CREATE TABLE IF NOT EXISTS chunk_embeddings (
			chunk_id INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL
		);
	`
}

func encodeEmbedding(embedding []float32) ([]byte, error) {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf, nil
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has invalid length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func (s *SQLite) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	query := `
		SELECT c.id, c.chunk_text, d.id, d.title, d.document_type, c.chunk_index, c.metadata, e.embedding
		FROM chunk_embeddings e
		JOIN document_chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
	`
	args := []interface{}{}

	if opts.Category != "" {
		query += " WHERE d.document_type = ? OR d.insurance_provider = ?"
		args = append(args, opts.Category, opts.Category)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		var meta string
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Text, &m.DocumentID, &m.DocumentTitle,
			&m.DocumentType, &m.ChunkIndex, &meta, &blob); err != nil {
			return nil, err
		}

		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		m.Similarity = CosineSimilarity(embedding, vec)

		if m.Metadata, err = unmarshalMetadata([]byte(meta)); err != nil {
			return nil, err
		}
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Category is already applied in SQL.
	opts.Category = ""
	return Rank(candidates, opts), nil
}

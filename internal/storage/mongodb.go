package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MereWhiplash/aria/internal/types"
)

// VectorIndexName is the Atlas Vector Search index expected on the chunks
// collection (path "embedding", cosine, filter fields document_type and
// insurance_provider).
const VectorIndexName = "chunk_embedding_index"

// MongoDB implements Storage using MongoDB with Atlas Vector Search
type MongoDB struct {
	client    *mongo.Client
	db        *mongo.Database
	documents *mongo.Collection
	chunks    *mongo.Collection
	idCounter int64
}

type documentDoc struct {
	ID                string         `bson:"_id"`
	Title             string         `bson:"title"`
	Content           string         `bson:"content"`
	DocumentType      string         `bson:"document_type"`
	InsuranceProvider string         `bson:"insurance_provider,omitempty"`
	Metadata          map[string]any `bson:"metadata,omitempty"`
	CreatedAt         time.Time      `bson:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at"`
}

// chunkDoc carries a copy of the parent's title, type and provider so vector
// search can filter and project without a $lookup.
type chunkDoc struct {
	ID                int64          `bson:"_id"`
	DocumentID        string         `bson:"document_id"`
	DocumentTitle     string         `bson:"document_title"`
	DocumentType      string         `bson:"document_type"`
	InsuranceProvider string         `bson:"insurance_provider,omitempty"`
	ChunkIndex        int            `bson:"chunk_index"`
	Text              string         `bson:"chunk_text"`
	Metadata          map[string]any `bson:"metadata,omitempty"`
	Embedding         []float32      `bson:"embedding"`
	Score             float64        `bson:"score,omitempty"`
}

// NewMongoDB creates a new MongoDB storage
func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	m := &MongoDB{
		client:    client,
		db:        db,
		documents: db.Collection("documents"),
		chunks:    db.Collection("document_chunks"),
	}

	if err := m.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	// Initialize ID counter from max existing chunk ID
	if err := m.initIDCounter(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to init id counter: %w", err)
	}

	return m, nil
}

func (m *MongoDB) initIndexes(ctx context.Context) error {
	_, err := m.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_type", Value: 1}}},
		{Keys: bson.D{{Key: "insurance_provider", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = m.chunks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "document_type", Value: 1}}},
	})
	return err
}

func (m *MongoDB) initIDCounter(ctx context.Context) error {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	var doc chunkDoc
	err := m.chunks.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		m.idCounter = 0
		return nil
	}
	if err != nil {
		return err
	}
	m.idCounter = doc.ID
	return nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) InsertDocument(ctx context.Context, doc Document) (*Document, error) {
	now := time.Now().UTC()

	_, err := m.documents.InsertOne(ctx, documentDoc{
		ID:                doc.ID,
		Title:             doc.Title,
		Content:           doc.Content,
		DocumentType:      doc.DocumentType,
		InsuranceProvider: doc.InsuranceProvider,
		Metadata:          doc.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	out := doc
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (m *MongoDB) InsertChunk(ctx context.Context, chunk Chunk, embedding []float32) error {
	var parent documentDoc
	err := m.documents.FindOne(ctx, bson.D{{Key: "_id", Value: chunk.DocumentID}}).Decode(&parent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("document %s: %w", chunk.DocumentID, types.ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = m.chunks.InsertOne(ctx, chunkDoc{
		ID:                atomic.AddInt64(&m.idCounter, 1),
		DocumentID:        chunk.DocumentID,
		DocumentTitle:     parent.Title,
		DocumentType:      parent.DocumentType,
		InsuranceProvider: parent.InsuranceProvider,
		ChunkIndex:        chunk.ChunkIndex,
		Text:              chunk.Text,
		Metadata:          chunk.Metadata,
		Embedding:         embedding,
	})
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
	}
	return nil
}

func categoryFilter(category string) bson.D {
	if category == "" {
		return bson.D{}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "document_type", Value: category}},
		bson.D{{Key: "insurance_provider", Value: category}},
	}}}
}

func (m *MongoDB) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	limit := searchLimit(opts)

	search := bson.D{
		{Key: "index", Value: VectorIndexName},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: embedding},
		{Key: "numCandidates", Value: limit * 10},
		{Key: "limit", Value: limit},
	}
	if opts.Category != "" {
		search = append(search, bson.E{Key: "filter", Value: categoryFilter(opts.Category)})
	}

	// Requires an Atlas Vector Search index; self-hosted deployments fall back
	// to scanning the chunks in process.
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$set", Value: bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}}}}},
		{{Key: "$project", Value: bson.D{{Key: "embedding", Value: 0}}}},
	}

	cursor, err := m.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		slog.Debug("vector search unavailable, scanning", "error", err)
		return m.scanFallback(ctx, embedding, opts)
	}
	defer cursor.Close(ctx)

	var matches []ChunkMatch
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		// Atlas reports cosine scores as (1 + cos) / 2.
		matches = append(matches, doc.toMatch(2*doc.Score-1))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return Rank(matches, opts), nil
}

func (m *MongoDB) scanFallback(ctx context.Context, embedding []float32, opts SearchOpts) ([]ChunkMatch, error) {
	cursor, err := m.chunks.Find(ctx, categoryFilter(opts.Category))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var matches []ChunkMatch
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		matches = append(matches, doc.toMatch(CosineSimilarity(embedding, doc.Embedding)))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	opts.Category = ""
	return Rank(matches, opts), nil
}

func (d chunkDoc) toMatch(similarity float64) ChunkMatch {
	return ChunkMatch{
		ID:            d.ID,
		Text:          d.Text,
		Similarity:    similarity,
		DocumentID:    d.DocumentID,
		DocumentTitle: d.DocumentTitle,
		DocumentType:  d.DocumentType,
		ChunkIndex:    d.ChunkIndex,
		Metadata:      d.Metadata,
	}
}

func (m *MongoDB) ListDocuments(ctx context.Context, opts ListOpts) ([]Document, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(listLimit(opts))).
		SetProjection(bson.D{{Key: "content", Value: 0}})

	cursor, err := m.documents.Find(ctx, categoryFilter(opts.Category), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var doc documentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, Document{
			ID:                doc.ID,
			Title:             doc.Title,
			DocumentType:      doc.DocumentType,
			InsuranceProvider: doc.InsuranceProvider,
			Metadata:          doc.Metadata,
			CreatedAt:         doc.CreatedAt,
			UpdatedAt:         doc.UpdatedAt,
		})
	}

	return docs, cursor.Err()
}

// DeleteDocument removes chunks before the document so a failed delete can
// be retried by ID.
func (m *MongoDB) DeleteDocument(ctx context.Context, id string) error {
	if _, err := m.chunks.DeleteMany(ctx, bson.D{{Key: "document_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	result, err := m.documents.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (m *MongoDB) Stats(ctx context.Context) (*Stats, error) {
	docs, err := m.documents.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	chunks, err := m.chunks.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	return &Stats{DocumentsCount: docs, EmbeddingsCount: chunks}, nil
}

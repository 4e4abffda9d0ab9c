package storage

import (
	"context"
	"fmt"
)

// DefaultDimensions matches OpenAI text-embedding-3-small
const DefaultDimensions = 1536

// Config holds storage configuration
type Config struct {
	Driver string // "sqlite", "postgres", "mongodb", "memory"

	// Dimensions sizes the vector columns
	Dimensions int

	// SQLite
	SQLitePath string

	// Postgres
	PostgresDSN string

	// MongoDB
	MongoDBURI      string
	MongoDBDatabase string
}

// New creates a Storage implementation based on config
func New(ctx context.Context, cfg Config) (Storage, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	switch cfg.Driver {
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return NewSQLite(cfg.SQLitePath, cfg.Dimensions)

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		return NewPostgres(ctx, cfg.PostgresDSN, cfg.Dimensions)

	case "mongodb":
		if cfg.MongoDBURI == "" {
			return nil, fmt.Errorf("mongodb URI is required")
		}
		if cfg.MongoDBDatabase == "" {
			cfg.MongoDBDatabase = "aria"
		}
		return NewMongoDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)

	case "memory":
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

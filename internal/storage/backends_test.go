package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MereWhiplash/aria/internal/storage"
)

func TestMemoryStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) storage.Storage {
		return storage.NewMemory()
	})
}

func TestSQLiteStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) storage.Storage {
		store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"), testDims)
		if err != nil {
			t.Fatalf("failed to create storage: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

// cleanupPostgres removes all test data before each test
func cleanupPostgres(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect for cleanup: %v", err)
	}
	defer pool.Close()

	// Dimensions are fixed at table creation; start from a clean schema.
	_, err = pool.Exec(ctx, `
		DROP FUNCTION IF EXISTS match_document_chunks;
		DROP TABLE IF EXISTS document_embeddings;
		DROP TABLE IF EXISTS documents;
	`)
	if err != nil {
		t.Fatalf("failed to cleanup tables: %v", err)
	}
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping Postgres tests")
	}

	runStorageSuite(t, func(t *testing.T) storage.Storage {
		cleanupPostgres(t, dsn)
		store, err := storage.NewPostgres(context.Background(), dsn, testDims)
		if err != nil {
			t.Fatalf("failed to create storage: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func cleanupMongoDB(t *testing.T, uri, database string) {
	t.Helper()
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect for cleanup: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Database(database).Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
}

func TestMongoDBStorage(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set, skipping MongoDB tests")
	}

	runStorageSuite(t, func(t *testing.T) storage.Storage {
		cleanupMongoDB(t, uri, "aria_test")
		store, err := storage.NewMongoDB(context.Background(), uri, "aria_test")
		if err != nil {
			t.Fatalf("failed to create storage: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

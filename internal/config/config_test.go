package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/aria/internal/chunker"
	"github.com/MereWhiplash/aria/internal/config"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aria.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, chunker.DefaultSize, cfg.Chunking.Size)
	assert.Equal(t, chunker.DefaultOverlap, cfg.Chunking.Overlap)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9090"
request_timeout = "30s"
cors_origins = ["https://app.example.com"]

[storage]
driver = "sqlite"
sqlite_path = "/tmp/kb.db"

[chunking]
strategy = "fixed"
size = 500
overlap = 50

[rate_limit]
window = "2m"
`)

	cfg := config.Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Server.RequestTimeout))
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/kb.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.RateLimit.Window))

	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, "aria", cfg.Storage.MongoDBDatabase)

	cc := cfg.ChunkerConfig()
	assert.Equal(t, chunker.StrategyFixed, cc.Strategy)
	assert.Equal(t, 500, cc.Size)
	assert.Equal(t, 50, cc.Overlap)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))

	path := writeFile(t, "[server]\nrequest_timeout = \"soon\"\n")
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ARIA_STORAGE_DRIVER":       "mongodb",
		"ARIA_MONGODB_URI":          "mongodb://localhost:27017",
		"ARIA_EMBEDDING_DIMENSIONS": "768",
		"ARIA_CORS_ORIGINS":         "https://a.example.com, https://b.example.com",
		"ARIA_RATE_LIMIT_WINDOW":    "30s",
		"ARIA_LLM_PROVIDER":         "openai",
		"OPENAI_API_KEY":            "sk-test",
	}))
	require.NoError(t, err)

	assert.Equal(t, "mongodb", cfg.Storage.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoDBURI)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.RateLimit.Window))

	// both default to openai, so both pick up the shared key
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestApplyEnv_ExplicitKeyWins(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"ARIA_EMBEDDING_API_KEY": "sk-embed",
		"OPENAI_API_KEY":         "sk-shared",
	})))
	assert.Equal(t, "sk-embed", cfg.Embedding.APIKey)
}

func TestApplyEnv_InvalidNumbers(t *testing.T) {
	cfg := config.Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ARIA_CHUNK_SIZE":      "big",
		"ARIA_REQUEST_TIMEOUT": "later",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARIA_CHUNK_SIZE")
	assert.Contains(t, err.Error(), "ARIA_REQUEST_TIMEOUT")
}

func TestBindFlags(t *testing.T) {
	cfg := config.Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-storage-driver", "memory",
		"-chunk-size", "200",
		"-cors-origins", "*",
		"-request-timeout", "5s",
	}))

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 200, cfg.Chunking.Size)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Server.RequestTimeout))
}

func TestTrustProxyHeaders(t *testing.T) {
	cfg := config.Default()
	assert.False(t, cfg.Server.TrustProxyHeaders, "proxy headers must be opt-in")

	require.NoError(t, cfg.LoadFile(writeFile(t, "[server]\ntrust_proxy_headers = true\n")))
	assert.True(t, cfg.Server.TrustProxyHeaders)

	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{"ARIA_TRUST_PROXY_HEADERS": "false"})))
	assert.False(t, cfg.Server.TrustProxyHeaders)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-trust-proxy-headers"}))
	assert.True(t, cfg.Server.TrustProxyHeaders)

	err := config.Default().ApplyEnv(envMap(map[string]string{"ARIA_TRUST_PROXY_HEADERS": "sometimes"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARIA_TRUST_PROXY_HEADERS")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "[storage]\ndriver = \"sqlite\"\n[chunking]\nsize = 400\noverlap = 40\n")
	t.Setenv("ARIA_CHUNK_SIZE", "300")

	cfg, err := config.Load([]string{"-config", path, "-chunk-overlap", "10"})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver) // file
	assert.Equal(t, 300, cfg.Chunking.Size)       // env over file
	assert.Equal(t, 10, cfg.Chunking.Overlap)     // flag over file
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	path := writeFile(t, "[storage]\ndriver = \"memory\"\n")
	t.Setenv("ARIA_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "redis" }},
		{"zero dimensions", func(c *config.Config) { c.Embedding.Dimensions = 0 }},
		{"overlap not below size", func(c *config.Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"unknown strategy", func(c *config.Config) { c.Chunking.Strategy = "paragraph" }},
		{"zero window", func(c *config.Config) { c.RateLimit.Window = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFactoryConfigs(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	cfg.Embedding.Dimensions = 768
	cfg.LLM.Provider = "gemini"
	cfg.LLM.RequestsPerMinute = 30

	sc := cfg.StorageConfig()
	assert.Equal(t, "sqlite", sc.Driver)
	assert.Equal(t, 768, sc.Dimensions)

	ec := cfg.EmbedderConfig()
	assert.Equal(t, 768, ec.Dimensions)
	assert.Equal(t, "text-embedding-3-small", ec.Model)

	lc := cfg.LLMConfig()
	assert.Equal(t, "gemini", lc.Provider)
	assert.Equal(t, 30, lc.RequestsPerMinute)
}

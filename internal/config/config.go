// Package config loads ARIA settings.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional TOML file (-config or ARIA_CONFIG), a .env file and the process
// environment (ARIA_* variables), then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/MereWhiplash/aria/internal/chunker"
	"github.com/MereWhiplash/aria/internal/embedder"
	"github.com/MereWhiplash/aria/internal/llm"
	"github.com/MereWhiplash/aria/internal/storage"
)

// Config is the full application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
	Client    ClientConfig    `toml:"client"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	CORSOrigins    []string `toml:"cors_origins"`
	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `toml:"trust_proxy_headers"`
}

type StorageConfig struct {
	Driver          string `toml:"driver"`
	SQLitePath      string `toml:"sqlite_path"`
	PostgresDSN     string `toml:"postgres_dsn"`
	MongoDBURI      string `toml:"mongodb_uri"`
	MongoDBDatabase string `toml:"mongodb_database"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
	MaxChars   int    `toml:"max_chars"`
}

type LLMConfig struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type ChunkingConfig struct {
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
}

// RateLimitConfig bounds requests per client IP. Requests 0 disables it;
// RedisURL switches from the in-process limiter to a shared counter.
type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Window   Duration `toml:"window"`
	RedisURL string   `toml:"redis_url"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

// ClientConfig is used by the shim and the CLI when talking to a remote API
type ClientConfig struct {
	APIURL string `toml:"api_url"`
	UserID string `toml:"user_id"`
	OrgID  string `toml:"org_id"`
}

// Duration is a time.Duration written as a string ("30s", "1m") in TOML
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: Duration(60 * time.Second),
		},
		Storage: StorageConfig{
			Driver:          "postgres",
			SQLitePath:      ".aria/aria.db",
			MongoDBDatabase: "aria",
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: storage.DefaultDimensions,
			MaxChars:   embedder.DefaultMaxChars,
		},
		LLM: LLMConfig{
			Provider:          "none",
			RequestsPerMinute: 60,
		},
		Chunking: ChunkingConfig{
			Strategy: string(chunker.StrategySentence),
			Size:     chunker.DefaultSize,
			Overlap:  chunker.DefaultOverlap,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   Duration(time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			APIURL: "http://localhost:8080",
		},
	}
}

// Load builds a Config from every source. args are the command-line
// arguments without the program name; flag.ErrHelp is returned for -h.
func Load(args []string) (*Config, error) {
	path := configPath(args)

	cfg, err := LoadEnv(path)
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("aria", flag.ContinueOnError)
	fs.String("config", path, "Path to a TOML config file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv applies defaults, the TOML file at path (if any), .env and the
// environment. It does not validate.
func LoadEnv(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath finds -config in args before flags are parsed, falling back to
// ARIA_CONFIG.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("ARIA_CONFIG")
}

// LoadFile overlays a TOML file onto cfg. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays ARIA_* variables read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("ARIA_ADDR", &c.Server.Addr)
	dur("ARIA_REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	if v, ok := lookup("ARIA_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	boolean("ARIA_TRUST_PROXY_HEADERS", &c.Server.TrustProxyHeaders)

	str("ARIA_STORAGE_DRIVER", &c.Storage.Driver)
	str("ARIA_SQLITE_PATH", &c.Storage.SQLitePath)
	str("ARIA_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("ARIA_MONGODB_URI", &c.Storage.MongoDBURI)
	str("ARIA_MONGODB_DATABASE", &c.Storage.MongoDBDatabase)

	str("ARIA_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("ARIA_EMBEDDING_MODEL", &c.Embedding.Model)
	str("ARIA_EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	str("ARIA_EMBEDDING_API_KEY", &c.Embedding.APIKey)
	num("ARIA_EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)
	num("ARIA_EMBEDDING_MAX_CHARS", &c.Embedding.MaxChars)

	str("ARIA_LLM_PROVIDER", &c.LLM.Provider)
	str("ARIA_LLM_MODEL", &c.LLM.Model)
	str("ARIA_LLM_BASE_URL", &c.LLM.BaseURL)
	str("ARIA_LLM_API_KEY", &c.LLM.APIKey)
	num("ARIA_LLM_REQUESTS_PER_MINUTE", &c.LLM.RequestsPerMinute)

	str("ARIA_CHUNK_STRATEGY", &c.Chunking.Strategy)
	num("ARIA_CHUNK_SIZE", &c.Chunking.Size)
	num("ARIA_CHUNK_OVERLAP", &c.Chunking.Overlap)

	num("ARIA_RATE_LIMIT", &c.RateLimit.Requests)
	dur("ARIA_RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	str("ARIA_REDIS_URL", &c.RateLimit.RedisURL)

	str("ARIA_LOG_LEVEL", &c.Log.Level)
	str("ARIA_LOG_FORMAT", &c.Log.Format)

	str("ARIA_API_URL", &c.Client.APIURL)
	str("ARIA_USER_ID", &c.Client.UserID)
	str("ARIA_ORG_ID", &c.Client.OrgID)

	// provider keys under their usual names
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = providerKey(lookup, c.Embedding.Provider)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKey(lookup, c.LLM.Provider)
	}

	return errors.Join(errs...)
}

func providerKey(lookup func(string) (string, bool), provider string) string {
	var key string
	switch provider {
	case "openai":
		key = "OPENAI_API_KEY"
	case "gemini":
		key = "GEMINI_API_KEY"
	default:
		return ""
	}
	v, _ := lookup(key)
	return v
}

// BindFlags registers a flag for each setting, defaulting to the current value
func (c *Config) BindFlags(fs *flag.FlagSet) {
	// Server flags
	fs.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "Server address")
	fs.DurationVar((*time.Duration)(&c.Server.RequestTimeout), "request-timeout", time.Duration(c.Server.RequestTimeout), "Per-request timeout")
	fs.Func("cors-origins", "Comma-separated list of allowed CORS origins (empty to disable)", func(s string) error {
		c.Server.CORSOrigins = splitList(s)
		return nil
	})
	fs.BoolVar(&c.Server.TrustProxyHeaders, "trust-proxy-headers", c.Server.TrustProxyHeaders, "Rate limit by X-Forwarded-For / X-Real-IP (only behind a trusted proxy)")

	// Storage flags
	fs.StringVar(&c.Storage.Driver, "storage-driver", c.Storage.Driver, "Storage driver: postgres, sqlite, mongodb, memory")
	fs.StringVar(&c.Storage.SQLitePath, "db-path", c.Storage.SQLitePath, "Path to SQLite database (sqlite driver)")
	fs.StringVar(&c.Storage.PostgresDSN, "postgres-dsn", c.Storage.PostgresDSN, "PostgreSQL connection string (postgres driver)")
	fs.StringVar(&c.Storage.MongoDBURI, "mongodb-uri", c.Storage.MongoDBURI, "MongoDB connection URI (mongodb driver)")
	fs.StringVar(&c.Storage.MongoDBDatabase, "mongodb-database", c.Storage.MongoDBDatabase, "MongoDB database name (mongodb driver)")

	// Embedder flags
	fs.StringVar(&c.Embedding.Provider, "embedding-provider", c.Embedding.Provider, "Embedding provider: openai, gemini, ollama")
	fs.StringVar(&c.Embedding.Model, "embedding-model", c.Embedding.Model, "Embedding model")
	fs.StringVar(&c.Embedding.BaseURL, "embedding-url", c.Embedding.BaseURL, "Embedding API base URL")
	fs.IntVar(&c.Embedding.Dimensions, "embedding-dimensions", c.Embedding.Dimensions, "Embedding vector dimensions")

	// LLM flags
	fs.StringVar(&c.LLM.Provider, "llm-provider", c.LLM.Provider, "LLM provider: openai, gemini, none")
	fs.StringVar(&c.LLM.Model, "llm-model", c.LLM.Model, "LLM model")

	// Chunking flags
	fs.StringVar(&c.Chunking.Strategy, "chunk-strategy", c.Chunking.Strategy, "Chunking strategy: sentence, fixed")
	fs.IntVar(&c.Chunking.Size, "chunk-size", c.Chunking.Size, "Maximum chunk length in characters")
	fs.IntVar(&c.Chunking.Overlap, "chunk-overlap", c.Chunking.Overlap, "Fixed-window overlap in characters")

	// Rate limiting flags
	fs.IntVar(&c.RateLimit.Requests, "rate-limit", c.RateLimit.Requests, "Requests per window per IP (0 to disable)")
	fs.StringVar(&c.RateLimit.RedisURL, "redis-url", c.RateLimit.RedisURL, "Redis URL for a shared rate limit (empty for in-process)")

	// Logging flags
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "Log format: json, text")
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite", "mongodb", "memory":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if _, err := chunker.New(c.ChunkerConfig()); err != nil {
		return err
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", time.Duration(c.RateLimit.Window))
	}
	return nil
}

// StorageConfig returns the storage factory settings
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:          c.Storage.Driver,
		Dimensions:      c.Embedding.Dimensions,
		SQLitePath:      c.Storage.SQLitePath,
		PostgresDSN:     c.Storage.PostgresDSN,
		MongoDBURI:      c.Storage.MongoDBURI,
		MongoDBDatabase: c.Storage.MongoDBDatabase,
	}
}

// EmbedderConfig returns the embedder factory settings
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		BaseURL:    c.Embedding.BaseURL,
		APIKey:     c.Embedding.APIKey,
		Dimensions: c.Embedding.Dimensions,
		MaxChars:   c.Embedding.MaxChars,
	}
}

// LLMConfig returns the completer factory settings
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:          c.LLM.Provider,
		Model:             c.LLM.Model,
		APIKey:            c.LLM.APIKey,
		BaseURL:           c.LLM.BaseURL,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
	}
}

// ChunkerConfig returns the chunker settings
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		Strategy: chunker.Strategy(strings.ToLower(c.Chunking.Strategy)),
		Size:     c.Chunking.Size,
		Overlap:  c.Chunking.Overlap,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

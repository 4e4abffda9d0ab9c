package embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedEmbedding is returned when a provider answers without a usable vector
var ErrMalformedEmbedding = errors.New("malformed embedding")

// DefaultMaxChars bounds the text sent to a provider
const DefaultMaxChars = 8000

// Embedder generates vector embeddings for text
type Embedder interface {
	// EmbedForStorage creates an embedding optimized for document storage
	EmbedForStorage(ctx context.Context, text string) ([]float32, error)
	// EmbedForSearch creates an embedding optimized for search queries
	EmbedForSearch(ctx context.Context, query string) ([]float32, error)
}

// Config selects and configures an embedding provider
type Config struct {
	Provider   string // "ollama", "openai", "gemini"
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	MaxChars   int
}

// New creates the configured provider wrapped in a Checked embedder
func New(ctx context.Context, cfg Config) (*Checked, error) {
	var inner Embedder

	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		inner = NewOllama(baseURL, model)

	case "openai":
		o, err := NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = o

	case "gemini":
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		inner = g

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	return NewChecked(inner, cfg.MaxChars, cfg.Dimensions), nil
}

// Checked truncates input and validates provider output
type Checked struct {
	inner      Embedder
	maxChars   int
	dimensions int
}

// NewChecked wraps e. maxChars <= 0 uses DefaultMaxChars; dimensions <= 0
// skips the length check.
func NewChecked(e Embedder, maxChars, dimensions int) *Checked {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Checked{inner: e, maxChars: maxChars, dimensions: dimensions}
}

func (c *Checked) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	emb, err := c.inner.EmbedForStorage(ctx, Truncate(text, c.maxChars))
	if err != nil {
		return nil, err
	}
	return c.check(emb)
}

func (c *Checked) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	emb, err := c.inner.EmbedForSearch(ctx, Truncate(query, c.maxChars))
	if err != nil {
		return nil, err
	}
	return c.check(emb)
}

// Close releases the wrapped provider if it holds resources
func (c *Checked) Close() error {
	if cl, ok := c.inner.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

func (c *Checked) check(emb []float32) ([]float32, error) {
	if len(emb) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrMalformedEmbedding)
	}
	if c.dimensions > 0 && len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrMalformedEmbedding, c.dimensions, len(emb))
	}
	return emb, nil
}

// Truncate returns at most max runes of text
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max])
}

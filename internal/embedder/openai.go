package embedder

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Default OpenAI embedding settings
const (
	DefaultOpenAIModel = "text-embedding-3-small"
)

// OpenAIConfig configures the OpenAI embedder
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint for Azure or compatible servers
	BaseURL    string
	Model      string
	Dimensions int // only honoured by text-embedding-3-* models
}

// OpenAI implements Embedder using the OpenAI embeddings API
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates a new OpenAI embedder
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (o *OpenAI) embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("openai: cannot embed empty text")
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.model),
		Input: []string{text},
	}
	if o.dimensions > 0 && (o.model == "text-embedding-3-small" || o.model == "text-embedding-3-large") {
		req.Dimensions = o.dimensions
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data returned", ErrMalformedEmbedding)
	}

	raw := resp.Data[0].Embedding
	v := make([]float32, len(raw))
	for i := range raw {
		v[i] = float32(raw[i])
	}
	return v, nil
}

// OpenAI models embed documents and queries the same way
func (o *OpenAI) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	return o.embed(ctx, text)
}

func (o *OpenAI) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	return o.embed(ctx, query)
}

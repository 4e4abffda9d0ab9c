package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is Google's general-purpose embedding model
const DefaultGeminiModel = "text-embedding-004"

// Gemini implements Embedder using Google Generative AI
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini embedder. The client is shared across calls and
// released by Close.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) embed(ctx context.Context, text string, taskType genai.TaskType) ([]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = taskType

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("%w: no embedding returned", ErrMalformedEmbedding)
	}

	return resp.Embedding.Values, nil
}

func (g *Gemini) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, genai.TaskTypeRetrievalDocument)
}

func (g *Gemini) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	return g.embed(ctx, query, genai.TaskTypeRetrievalQuery)
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}

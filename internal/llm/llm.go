// Package llm drafts report narrative through a chat-completion provider.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrDisabled is returned by the no-op completer when no provider is configured
var ErrDisabled = errors.New("no LLM provider configured")

// Request is a single completion call
type Request struct {
	System      string
	Prompt      string
	JSON        bool // ask the provider for a JSON object response
	Temperature float64
	MaxTokens   int
}

// Completer produces text for a prompt
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a completion provider
type Config struct {
	Provider string // "openai", "gemini", "none"
	Model    string
	APIKey   string
	BaseURL  string

	// RequestsPerMinute bounds outgoing calls; 0 disables the limiter
	RequestsPerMinute int
}

// New creates the configured provider wrapped in a Guarded completer.
// Provider "none" (or empty) yields a completer that always fails with
// ErrDisabled so the RAG endpoints keep working without an LLM.
func New(ctx context.Context, cfg Config) (Completer, error) {
	var inner Completer

	switch cfg.Provider {
	case "", "none":
		return disabled{}, nil

	case "openai":
		o, err := NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model)
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
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	return NewGuarded(inner, cfg.Provider, cfg.RequestsPerMinute), nil
}

type disabled struct{}

func (disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

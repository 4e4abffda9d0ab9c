package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOpenAITestServer(t *testing.T, dims int, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if captured != nil {
			json.NewDecoder(r.Body).Decode(captured)
		}

		embedding := make([]float32, dims)
		embedding[0] = 0.25
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": embedding},
			},
			"model": "text-embedding-3-small",
		})
	}))
}

func TestOpenAI_EmbedForStorage(t *testing.T) {
	var body map[string]any
	server := newOpenAITestServer(t, 1536, &body)
	defer server.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}

	emb, err := o.EmbedForStorage(context.Background(), "behavior intervention plan")
	if err != nil {
		t.Fatalf("EmbedForStorage failed: %v", err)
	}
	if len(emb) != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", len(emb))
	}
	if emb[0] != 0.25 {
		t.Errorf("expected first value 0.25, got %v", emb[0])
	}
	if body["model"] != DefaultOpenAIModel {
		t.Errorf("expected model %q, got %v", DefaultOpenAIModel, body["model"])
	}
}

func TestOpenAI_SendsDimensions(t *testing.T) {
	var body map[string]any
	server := newOpenAITestServer(t, 512, &body)
	defer server.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Dimensions: 512})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}

	if _, err := o.EmbedForSearch(context.Background(), "PHI definition"); err != nil {
		t.Fatalf("EmbedForSearch failed: %v", err)
	}
	if dims, _ := body["dimensions"].(float64); dims != 512 {
		t.Errorf("expected dimensions 512 in request, got %v", body["dimensions"])
	}
}

func TestOpenAI_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit","type":"requests"}}`))
	}))
	defer server.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}

	if _, err := o.EmbedForStorage(context.Background(), "text"); err == nil {
		t.Error("expected error on HTTP 429")
	}
}

func TestOpenAI_EmptyText(t *testing.T) {
	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	if _, err := o.EmbedForStorage(context.Background(), ""); err == nil {
		t.Error("expected error for empty text")
	}
}

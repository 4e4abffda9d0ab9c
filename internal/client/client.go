// Package client is an HTTP client for the ARIA knowledge-base API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MereWhiplash/aria/internal/apitypes"
	"github.com/MereWhiplash/aria/internal/types"
)

// Identity is the caller identity forwarded on every request
type Identity struct {
	UserID string
	OrgID  string
}

// APIError is a non-2xx response from the API
type APIError struct {
	Status        int
	Message       string
	DocumentID    string
	ChunksCreated *int
}

func (e *APIError) Error() string {
	if e.DocumentID != "" && e.ChunksCreated != nil {
		return fmt.Sprintf("API error (%d): %s (document %s, %d chunks created)", e.Status, e.Message, e.DocumentID, *e.ChunksCreated)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// Client is an HTTP client for the central API
type Client struct {
	baseURL  string
	identity Identity
	http     *http.Client
}

// New creates a new API client
func New(baseURL string, identity Identity) *Client {
	return &Client{
		baseURL:  baseURL,
		identity: identity,
		http: &http.Client{
			// ingestion embeds every chunk before responding
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.identity.UserID != "" {
		req.Header.Set(apitypes.HeaderUserID, c.identity.UserID)
	}
	if c.identity.OrgID != "" {
		req.Header.Set(apitypes.HeaderOrgID, c.identity.OrgID)
	}

	return c.http.Do(req)
}

// call performs a request and decodes a 200 response into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp apitypes.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{
			Status:        resp.StatusCode,
			Message:       errResp.Error,
			DocumentID:    errResp.DocumentID,
			ChunksCreated: errResp.ChunksCreated,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ingest uploads a document for chunking and embedding
func (c *Client) Ingest(ctx context.Context, req apitypes.IngestRequest) (*apitypes.IngestResponse, error) {
	var result apitypes.IngestResponse
	if err := c.call(ctx, http.MethodPost, "/rag/ingest", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Query searches the knowledge base
func (c *Client) Query(ctx context.Context, req apitypes.QueryRequest) ([]types.ChunkMatch, error) {
	var result apitypes.QueryResponse
	if err := c.call(ctx, http.MethodPost, "/rag/query", req, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Health reports store connectivity. An unhealthy store answers 503, which
// is decoded rather than returned as an error.
func (c *Client) Health(ctx context.Context) (*apitypes.RAGHealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/rag/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	var result apitypes.RAGHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ListDocuments returns a page of documents, newest first
func (c *Client) ListDocuments(ctx context.Context, limit, offset int, category string) ([]types.Document, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if category != "" {
		q.Set("category", category)
	}

	path := "/rag/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result apitypes.ListDocumentsResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// DeleteDocument removes a document and its chunks
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/rag/documents/"+url.PathEscape(id), nil, nil)
}

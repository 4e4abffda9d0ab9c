// Package apitypes holds the HTTP request and response bodies shared by the
// API server and its client. It has no CGO dependencies.
package apitypes

import (
	"github.com/MereWhiplash/aria/internal/types"
	"github.com/MereWhiplash/aria/internal/wizard"
)

// Caller identity headers set by the upstream auth layer
const (
	HeaderUserID    = "X-ARIA-User-ID"
	HeaderOrgID     = "X-ARIA-Org-ID"
	HeaderRequestID = "X-Request-ID"
)

// ErrorResponse is the body of every non-2xx response. DocumentID and
// ChunksCreated are set only for a partially ingested document.
type ErrorResponse struct {
	Error         string `json:"error"`
	DocumentID    string `json:"documentId,omitempty"`
	ChunksCreated *int   `json:"chunksCreated,omitempty"`
}

// HealthResponse is the liveness response
type HealthResponse struct {
	Status string `json:"status"`
}

// IngestRequest is the body for POST /rag/ingest
type IngestRequest struct {
	Title             string         `json:"title"`
	Content           string         `json:"content"`
	Category          string         `json:"category"`
	InsuranceProvider string         `json:"insuranceProvider,omitempty"`
	Metadata          types.Metadata `json:"metadata,omitempty"`
}

// IngestResponse is the response for POST /rag/ingest
type IngestResponse struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"documentId"`
	ChunksCreated int    `json:"chunksCreated"`
}

// QueryRequest is the body for POST /rag/query. Threshold is a pointer so an
// explicit 0 is distinguishable from "use the default".
type QueryRequest struct {
	Query      string   `json:"query"`
	Category   string   `json:"category,omitempty"`
	MatchCount int      `json:"matchCount,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
}

// QueryResponse is the response for POST /rag/query
type QueryResponse struct {
	Success bool               `json:"success"`
	Results []types.ChunkMatch `json:"results"`
	Query   string             `json:"query"`
	Count   int                `json:"count"`
}

// DatabaseHealth reports store connectivity and contents
type DatabaseHealth struct {
	Connected       bool  `json:"connected"`
	DocumentsCount  int64 `json:"documentsCount"`
	EmbeddingsCount int64 `json:"embeddingsCount"`
}

// RAGHealthResponse is the response for GET /rag/health
type RAGHealthResponse struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Error    string         `json:"error,omitempty"`
}

// Pagination describes a page of a listing
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ListDocumentsResponse is the response for GET /rag/documents
type ListDocumentsResponse struct {
	Documents  []types.Document `json:"documents"`
	Pagination Pagination       `json:"pagination"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// EmbedRequest is the body for POST /ai/embed
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse carries a null embedding when the provider failed
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// DraftRequest is the body for POST /ai/draft
type DraftRequest struct {
	Section          string            `json:"section"`
	Context          map[string]string `json:"context"`
	UseKnowledgeBase bool              `json:"useKnowledgeBase"`
	Category         string            `json:"category,omitempty"`
}

// DraftResponse is the response for POST /ai/draft
type DraftResponse struct {
	Success bool               `json:"success"`
	Section string             `json:"section"`
	Text    string             `json:"text"`
	Sources []types.ChunkMatch `json:"sources"`
}

// GoalsRequest is the body for POST /ai/goals
type GoalsRequest struct {
	ClientSummary string `json:"clientSummary"`
	Domain        string `json:"domain,omitempty"`
	Count         int    `json:"count,omitempty"`
}

// Goal is a suggested treatment goal
type Goal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Baseline    string `json:"baseline,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
	TargetDate  string `json:"targetDate"`
}

// GoalsResponse is the response for POST /ai/goals
type GoalsResponse struct {
	Success bool   `json:"success"`
	Goals   []Goal `json:"goals"`
}

// StepsResponse is the response for GET /wizard/steps
type StepsResponse struct {
	Steps []wizard.Step `json:"steps"`
}

// StepResponse is the response for GET /wizard/next and /wizard/prev
type StepResponse struct {
	Step wizard.Step `json:"step"`
}

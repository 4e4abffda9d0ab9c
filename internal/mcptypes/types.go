// Package mcptypes contains shared MCP tool input/output types.
// These are used by both the direct MCP server (tools) and the shim proxy.
package mcptypes

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/aria/internal/types"
)

// IngestInput defines the input schema for rag_ingest
type IngestInput struct {
	Title             string `json:"title" jsonschema:"required" jsonschema_description:"Document title"`
	Content           string `json:"content" jsonschema:"required" jsonschema_description:"Full document text"`
	Category          string `json:"category" jsonschema:"required" jsonschema_description:"Document category (e.g. compliance, clinical, billing)"`
	InsuranceProvider string `json:"insurance_provider,omitempty" jsonschema_description:"Payer this document applies to"`
}

// IngestOutput defines the output schema for rag_ingest
type IngestOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
}

// QueryInput defines the input schema for rag_query
type QueryInput struct {
	Query      string   `json:"query" jsonschema:"required" jsonschema_description:"Question to search the knowledge base for"`
	Category   string   `json:"category,omitempty" jsonschema_description:"Restrict results to a category or insurance provider"`
	MatchCount int      `json:"match_count,omitempty" jsonschema_description:"Maximum number of results (default: 5)"`
	Threshold  *float64 `json:"threshold,omitempty" jsonschema_description:"Minimum cosine similarity in [0,1] (default: 0.7)"`
}

// QueryOutput defines the output schema for rag_query
type QueryOutput struct {
	Results []types.ChunkMatch `json:"results"`
}

// ListInput defines the input schema for rag_list
type ListInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum number of documents (default: 20)"`
	Offset   int    `json:"offset,omitempty" jsonschema_description:"Number of documents to skip"`
	Category string `json:"category,omitempty" jsonschema_description:"Filter by category or insurance provider"`
}

// ListOutput defines the output schema for rag_list
type ListOutput struct {
	Documents []types.Document `json:"documents"`
}

// DeleteInput defines the input schema for rag_delete
type DeleteInput struct {
	ID string `json:"id" jsonschema:"required" jsonschema_description:"ID of the document to delete"`
}

// DeleteOutput defines the output schema for rag_delete
type DeleteOutput struct {
	Message string `json:"message"`
}

// TextResult creates a successful MCP result with text content
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrorResult creates an error MCP result
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Tool definitions (shared between server and shim)
var (
	IngestTool = &mcp.Tool{
		Name:        "rag_ingest",
		Description: "Chunk, embed and store a document in the knowledge base",
	}

	QueryTool = &mcp.Tool{
		Name:        "rag_query",
		Description: "Search the knowledge base by semantic similarity",
	}

	ListTool = &mcp.Tool{
		Name:        "rag_list",
		Description: "List documents in the knowledge base, newest first",
	}

	DeleteTool = &mcp.Tool{
		Name:        "rag_delete",
		Description: "Delete a document and all of its chunks",
	}
)

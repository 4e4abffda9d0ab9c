// Package shim registers the RAG tools on a local MCP server and proxies
// each call to a central API.
package shim

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/aria/internal/apitypes"
	"github.com/MereWhiplash/aria/internal/mcptypes"
	"github.com/MereWhiplash/aria/internal/types"
)

// APIClient is the subset of client.Client the shim needs
type APIClient interface {
	Ingest(ctx context.Context, req apitypes.IngestRequest) (*apitypes.IngestResponse, error)
	Query(ctx context.Context, req apitypes.QueryRequest) ([]types.ChunkMatch, error)
	ListDocuments(ctx context.Context, limit, offset int, category string) ([]types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Handler holds shim dependencies
type Handler struct {
	client APIClient
}

// NewHandler creates a new shim handler
func NewHandler(c APIClient) *Handler {
	return &Handler{client: c}
}

// Register adds all RAG tools to the MCP server
func Register(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, mcptypes.IngestTool, h.Ingest)
	mcp.AddTool(server, mcptypes.QueryTool, h.Query)
	mcp.AddTool(server, mcptypes.ListTool, h.List)
	mcp.AddTool(server, mcptypes.DeleteTool, h.Delete)
}

func (h *Handler) Ingest(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.IngestInput) (*mcp.CallToolResult, mcptypes.IngestOutput, error) {
	if input.Title == "" || input.Content == "" || input.Category == "" {
		return mcptypes.ErrorResult("title, content, and category are required"), mcptypes.IngestOutput{}, nil
	}

	res, err := h.client.Ingest(ctx, apitypes.IngestRequest{
		Title:             input.Title,
		Content:           input.Content,
		Category:          input.Category,
		InsuranceProvider: input.InsuranceProvider,
	})
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to ingest document: %v", err)), mcptypes.IngestOutput{}, nil
	}

	out := mcptypes.IngestOutput{DocumentID: res.DocumentID, ChunksCreated: res.ChunksCreated}
	return mcptypes.TextResult(fmt.Sprintf("Document %s ingested with %d chunks.", res.DocumentID, res.ChunksCreated)), out, nil
}

func (h *Handler) Query(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.QueryInput) (*mcp.CallToolResult, mcptypes.QueryOutput, error) {
	if input.Query == "" {
		return mcptypes.ErrorResult("query is required"), mcptypes.QueryOutput{}, nil
	}

	results, err := h.client.Query(ctx, apitypes.QueryRequest{
		Query:      input.Query,
		Category:   input.Category,
		MatchCount: input.MatchCount,
		Threshold:  input.Threshold,
	})
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to query: %v", err)), mcptypes.QueryOutput{}, nil
	}

	if len(results) == 0 {
		return mcptypes.TextResult("No matching passages found."), mcptypes.QueryOutput{Results: []types.ChunkMatch{}}, nil
	}

	result, _ := json.MarshalIndent(results, "", "  ")
	return mcptypes.TextResult(string(result)), mcptypes.QueryOutput{Results: results}, nil
}

func (h *Handler) List(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ListInput) (*mcp.CallToolResult, mcptypes.ListOutput, error) {
	docs, err := h.client.ListDocuments(ctx, input.Limit, input.Offset, input.Category)
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to list: %v", err)), mcptypes.ListOutput{}, nil
	}

	if len(docs) == 0 {
		return mcptypes.TextResult("No documents found."), mcptypes.ListOutput{Documents: []types.Document{}}, nil
	}

	result, _ := json.MarshalIndent(docs, "", "  ")
	return mcptypes.TextResult(string(result)), mcptypes.ListOutput{Documents: docs}, nil
}

func (h *Handler) Delete(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.DeleteInput) (*mcp.CallToolResult, mcptypes.DeleteOutput, error) {
	if input.ID == "" {
		return mcptypes.ErrorResult("id is required"), mcptypes.DeleteOutput{}, nil
	}

	if err := h.client.DeleteDocument(ctx, input.ID); err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to delete: %v", err)), mcptypes.DeleteOutput{}, nil
	}

	msg := fmt.Sprintf("Document %s has been deleted.", input.ID)
	return mcptypes.TextResult(msg), mcptypes.DeleteOutput{Message: msg}, nil
}

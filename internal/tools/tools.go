// Package tools exposes the knowledge base as MCP tools backed by a local
// service.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/aria/internal/mcptypes"
	"github.com/MereWhiplash/aria/internal/service"
	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
)

// Handler holds dependencies for tool handlers
type Handler struct {
	svc *service.Service
}

// NewHandler creates tool handlers over svc
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register adds all RAG tools to the MCP server
func Register(server *mcp.Server, svc *service.Service) {
	h := NewHandler(svc)

	mcp.AddTool(server, mcptypes.IngestTool, h.Ingest)
	mcp.AddTool(server, mcptypes.QueryTool, h.Query)
	mcp.AddTool(server, mcptypes.ListTool, h.List)
	mcp.AddTool(server, mcptypes.DeleteTool, h.Delete)
}

func (h *Handler) Ingest(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.IngestInput) (*mcp.CallToolResult, mcptypes.IngestOutput, error) {
	if input.Title == "" || input.Content == "" || input.Category == "" {
		return mcptypes.ErrorResult("title, content, and category are required"), mcptypes.IngestOutput{}, nil
	}

	res, err := h.svc.Ingest(ctx, service.IngestParams{
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

	res, err := h.svc.Query(ctx, service.QueryParams{
		Query:      input.Query,
		Category:   input.Category,
		MatchCount: input.MatchCount,
		Threshold:  input.Threshold,
	})
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to query: %v", err)), mcptypes.QueryOutput{}, nil
	}

	if len(res.Results) == 0 {
		return mcptypes.TextResult("No matching passages found."), mcptypes.QueryOutput{Results: []types.ChunkMatch{}}, nil
	}

	result, err := json.MarshalIndent(res.Results, "", "  ")
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to format response: %v", err)), mcptypes.QueryOutput{}, nil
	}
	return mcptypes.TextResult(string(result)), mcptypes.QueryOutput{Results: res.Results}, nil
}

func (h *Handler) List(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.ListInput) (*mcp.CallToolResult, mcptypes.ListOutput, error) {
	docs, err := h.svc.ListDocuments(ctx, storage.ListOpts{
		Limit:    input.Limit,
		Offset:   input.Offset,
		Category: input.Category,
	})
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to list: %v", err)), mcptypes.ListOutput{}, nil
	}

	if len(docs) == 0 {
		return mcptypes.TextResult("No documents found."), mcptypes.ListOutput{Documents: []types.Document{}}, nil
	}

	result, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to format response: %v", err)), mcptypes.ListOutput{}, nil
	}
	return mcptypes.TextResult(string(result)), mcptypes.ListOutput{Documents: docs}, nil
}

func (h *Handler) Delete(ctx context.Context, req *mcp.CallToolRequest, input mcptypes.DeleteInput) (*mcp.CallToolResult, mcptypes.DeleteOutput, error) {
	if input.ID == "" {
		return mcptypes.ErrorResult("id is required"), mcptypes.DeleteOutput{}, nil
	}

	if err := h.svc.DeleteDocument(ctx, input.ID); err != nil {
		return mcptypes.ErrorResult(fmt.Sprintf("failed to delete: %v", err)), mcptypes.DeleteOutput{}, nil
	}

	msg := fmt.Sprintf("Document %s has been deleted.", input.ID)
	return mcptypes.TextResult(msg), mcptypes.DeleteOutput{Message: msg}, nil
}

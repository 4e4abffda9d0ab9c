package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MereWhiplash/aria/internal/apitypes"
	"github.com/MereWhiplash/aria/internal/service"
	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
	"github.com/MereWhiplash/aria/internal/wizard"
)

// Handlers holds HTTP handler dependencies
type Handlers struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewHandlers creates new API handlers
func NewHandlers(svc *service.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, apitypes.ErrorResponse{Error: msg})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Provider and parse details are logged, never returned.
func (h *Handlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.logger.With("request_id", GetRequestID(r.Context()), "path", r.URL.Path)

	var (
		verr    *types.ValidationError
		partial *types.PartialIngestionError
		perr    *types.ParseError
		uerr    *types.UpstreamError
	)

	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, verr.Error())

	case errors.As(err, &partial):
		log.Error("partial ingestion", "document_id", partial.DocumentID,
			"chunks_created", partial.ChunksCreated, "error", partial.Err)
		created := partial.ChunksCreated
		h.respondJSON(w, http.StatusInternalServerError, apitypes.ErrorResponse{
			Error:         "ingestion failed after partial write",
			DocumentID:    partial.DocumentID,
			ChunksCreated: &created,
		})

	case errors.Is(err, types.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "document not found")

	case errors.As(err, &perr):
		log.Error("unparseable model response", "error", perr.Err, "raw_prefix", perr.RawPrefix())
		h.respondError(w, http.StatusInternalServerError, "failed to parse AI response")

	case errors.As(err, &uerr):
		log.Error("upstream call failed", "provider", uerr.Provider, "op", uerr.Op, "error", uerr.Err)
		h.respondError(w, http.StatusInternalServerError, "AI service unavailable")

	default:
		log.Error("request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, apitypes.HealthResponse{Status: "ok"})
}

// Ingest handles POST /rag/ingest
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req apitypes.IngestRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx := r.Context()

	res, err := h.svc.Ingest(ctx, service.IngestParams{
		Title:             req.Title,
		Content:           req.Content,
		Category:          req.Category,
		InsuranceProvider: req.InsuranceProvider,
		Metadata:          req.Metadata,
		UploadedBy:        GetUserID(ctx),
		OrgID:             GetOrgID(ctx),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.IngestResponse{
		Success:       true,
		DocumentID:    res.DocumentID,
		ChunksCreated: res.ChunksCreated,
	})
}

// Query handles POST /rag/query
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var req apitypes.QueryRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Query(r.Context(), service.QueryParams{
		Query:      req.Query,
		Category:   req.Category,
		MatchCount: req.MatchCount,
		Threshold:  req.Threshold,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	results := res.Results
	if results == nil {
		results = []types.ChunkMatch{}
	}

	h.respondJSON(w, http.StatusOK, apitypes.QueryResponse{
		Success: true,
		Results: results,
		Query:   res.Query,
		Count:   res.Count,
	})
}

// RAGHealth handles GET /rag/health
func (h *Handlers) RAGHealth(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health(r.Context())

	// store errors carry driver and address detail; the service logs them
	status := http.StatusOK
	var errMsg string
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
		errMsg = "database unavailable"
	}

	h.respondJSON(w, status, apitypes.RAGHealthResponse{
		Status: health.Status,
		Database: apitypes.DatabaseHealth{
			Connected:       health.Connected,
			DocumentsCount:  health.Stats.DocumentsCount,
			EmbeddingsCount: health.Stats.EmbeddingsCount,
		},
		Error: errMsg,
	})
}

// ListDocuments handles GET /rag/documents
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	docs, err := h.svc.ListDocuments(r.Context(), storage.ListOpts{
		Limit:    limit,
		Offset:   offset,
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []types.Document{}
	}

	h.respondJSON(w, http.StatusOK, apitypes.ListDocumentsResponse{
		Documents:  docs,
		Pagination: apitypes.Pagination{Limit: limit, Offset: offset, Count: len(docs)},
	})
}

// DeleteDocument handles DELETE /rag/documents/{id}
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.MessageResponse{Message: "Document " + id + " has been deleted."})
}

// Embed handles POST /ai/embed. Embedding failures answer 200 with a null
// vector.
func (h *Handlers) Embed(w http.ResponseWriter, r *http.Request) {
	var req apitypes.EmbedRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondJSON(w, http.StatusOK, apitypes.EmbedResponse{
		Embedding: h.svc.EmbedAssist(r.Context(), req.Text),
	})
}

// Draft handles POST /ai/draft
func (h *Handlers) Draft(w http.ResponseWriter, r *http.Request) {
	var req apitypes.DraftRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Draft(r.Context(), service.DraftParams{
		Section:          req.Section,
		Context:          req.Context,
		UseKnowledgeBase: req.UseKnowledgeBase,
		Category:         req.Category,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	sources := res.Sources
	if sources == nil {
		sources = []types.ChunkMatch{}
	}

	h.respondJSON(w, http.StatusOK, apitypes.DraftResponse{
		Success: true,
		Section: res.Section,
		Text:    res.Text,
		Sources: sources,
	})
}

// Goals handles POST /ai/goals
func (h *Handlers) Goals(w http.ResponseWriter, r *http.Request) {
	var req apitypes.GoalsRequest
	if !h.decode(w, r, &req) {
		return
	}

	goals, err := h.svc.SuggestGoals(r.Context(), service.GoalParams{
		ClientSummary: req.ClientSummary,
		Domain:        req.Domain,
		Count:         req.Count,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]apitypes.Goal, 0, len(goals))
	for _, g := range goals {
		out = append(out, apitypes.Goal(g))
	}

	h.respondJSON(w, http.StatusOK, apitypes.GoalsResponse{Success: true, Goals: out})
}

// WizardSteps handles GET /wizard/steps
func (h *Handlers) WizardSteps(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, apitypes.StepsResponse{Steps: wizard.Steps()})
}

// WizardNext handles GET /wizard/next?from=
func (h *Handlers) WizardNext(w http.ResponseWriter, r *http.Request) {
	h.wizardMove(w, r, wizard.Next)
}

// WizardPrev handles GET /wizard/prev?from=
func (h *Handlers) WizardPrev(w http.ResponseWriter, r *http.Request) {
	h.wizardMove(w, r, wizard.Prev)
}

func (h *Handlers) wizardMove(w http.ResponseWriter, r *http.Request, move func(string) (wizard.Step, bool, error)) {
	step, ok, err := move(r.URL.Query().Get("from"))
	if errors.Is(err, wizard.ErrUnknownStep) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if !ok {
		h.respondError(w, http.StatusNotFound, "no further step")
		return
	}
	h.respondJSON(w, http.StatusOK, apitypes.StepResponse{Step: step})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/scrypster/chronolex/internal/config"
	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/internal/storage/postgres"
	"github.com/scrypster/chronolex/internal/timeline"
	"github.com/scrypster/chronolex/pkg/types"
)

// EventSearcher is implemented by stores that support similarity search
// over saved timeline events. The sqlite store does not.
type EventSearcher interface {
	SearchSimilarEvents(ctx context.Context, query string, limit int) ([]postgres.EventMatch, error)
}

// APIHandlers holds the dependencies shared by the REST handlers.
type APIHandlers struct {
	store    storage.Store
	builder  *timeline.Builder
	cfg      *config.Config
	searcher EventSearcher
}

// NewAPIHandlers creates the handler set. searcher may be nil when the
// configured store has no embedding support.
func NewAPIHandlers(store storage.Store, builder *timeline.Builder, cfg *config.Config, searcher EventSearcher) *APIHandlers {
	return &APIHandlers{
		store:    store,
		builder:  builder,
		cfg:      cfg,
		searcher: searcher,
	}
}

// ListDocuments handles GET /api/documents.
func (h *APIHandlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list documents", err)
		return
	}

	resp := DocumentListResponse{Documents: make([]DocumentResponse, 0, len(docs)), Total: len(docs)}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, DocumentResponse{
			ID:   d.ID,
			Name: d.Name,
			Size: len(d.Content),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateDocument handles POST /api/documents.
func (h *APIHandlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "document content is required", nil)
		return
	}
	if req.Name == "" {
		req.Name = "untitled"
	}

	doc := types.Document{
		ID:      uuid.New().String(),
		Name:    req.Name,
		Content: req.Content,
	}
	if err := h.store.PutDocument(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store document", err)
		return
	}

	respondJSON(w, http.StatusCreated, DocumentResponse{
		ID:   doc.ID,
		Name: doc.Name,
		Size: len(doc.Content),
	})
}

// GetDocument handles GET /api/documents/{id}.
func (h *APIHandlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "document not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load document", err)
		return
	}

	respondJSON(w, http.StatusOK, DocumentResponse{
		ID:      doc.ID,
		Name:    doc.Name,
		Content: doc.Content,
		Size:    len(doc.Content),
	})
}

// DeleteDocument handles DELETE /api/documents/{id}.
func (h *APIHandlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "document not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BuildTimeline handles POST /api/timelines/build. Documents may be
// referenced by stored ID or supplied inline; both sources are combined.
func (h *APIHandlers) BuildTimeline(w http.ResponseWriter, r *http.Request) {
	var body BuildRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	docs := make([]types.Document, 0, len(body.DocumentIDs)+len(body.Documents))
	for _, id := range body.DocumentIDs {
		doc, err := h.store.GetDocument(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown document %q", id), nil)
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to load document", err)
			return
		}
		docs = append(docs, *doc)
	}
	for _, d := range body.Documents {
		docs = append(docs, types.Document{
			ID:      uuid.New().String(),
			Name:    d.Name,
			Content: d.Content,
		})
	}

	agents := make([]types.AgentKind, 0, len(body.Agents))
	for _, name := range body.Agents {
		kind, err := types.ParseAgentKind(name)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid agent", err)
			return
		}
		agents = append(agents, kind)
	}

	fusion := true
	if body.Fusion != nil {
		fusion = *body.Fusion
	}

	req := timeline.BuildRequest{
		Documents:    docs,
		View:         body.View,
		Agents:       agents,
		Fusion:       fusion,
		ManualEvents: body.ManualEvents,
		Title:        body.Title,
	}

	result, err := h.builder.Build(r.Context(), req)
	if err != nil {
		if errors.Is(err, timeline.ErrEmptyInput) {
			respondError(w, http.StatusBadRequest, "no documents to process", nil)
			return
		}
		respondError(w, http.StatusUnprocessableEntity, "build failed", err)
		return
	}

	if body.Save {
		if err := h.store.SaveTimeline(r.Context(), result); err != nil {
			log.Printf("[api] WARNING: failed to save timeline %s: %v", result.ID, err)
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// ListTimelines handles GET /api/timelines.
func (h *APIHandlers) ListTimelines(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListTimelines(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list timelines", err)
		return
	}

	resp := TimelineListResponse{Timelines: make([]TimelineSummaryResponse, 0, len(summaries)), Total: len(summaries)}
	for _, s := range summaries {
		resp.Timelines = append(resp.Timelines, TimelineSummaryResponse{
			ID:         s.ID,
			Title:      s.Title,
			View:       s.View,
			EventCount: s.EventCount,
			CreatedAt:  s.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetTimeline handles GET /api/timelines/{id}.
func (h *APIHandlers) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	t, err := h.store.GetTimeline(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "timeline not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load timeline", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteTimeline handles DELETE /api/timelines/{id}.
func (h *APIHandlers) DeleteTimeline(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if err := h.store.DeleteTimeline(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "timeline not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete timeline", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchEvents handles GET /api/search/events. Requires a store with
// embedding support; returns 501 otherwise.
func (h *APIHandlers) SearchEvents(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		respondError(w, http.StatusNotImplemented, "similarity search requires the postgres storage engine", nil)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 10)
	if limit > 100 {
		limit = 100
	}

	matches, err := h.searcher.SearchSimilarEvents(r.Context(), query, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed", err)
		return
	}

	resp := SearchResponse{Results: make([]SearchResultResponse, 0, len(matches)), Total: len(matches), Query: query}
	for _, m := range matches {
		resp.Results = append(resp.Results, SearchResultResponse{
			TimelineID:  m.TimelineID,
			EventIndex:  m.EventIndex,
			Description: m.Description,
			Distance:    m.Distance,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if
// parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, log only.
		log.Printf("[api] failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]any{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

package handlers

import (
	"time"

	"github.com/scrypster/chronolex/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// DocumentRequest is the payload for POST /api/documents.
type DocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DocumentResponse describes a stored document. Content is omitted from
// list responses to keep them small.
type DocumentResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Size    int    `json:"size"`
}

// DocumentListResponse is the response format for GET /api/documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
}

// BuildRequestBody is the payload for POST /api/timelines/build.
// DocumentIDs reference stored documents; inline Documents may be
// supplied instead (or in addition) for one-shot builds.
type BuildRequestBody struct {
	Title          string            `json:"title"`
	DocumentIDs    []string          `json:"document_ids"`
	Documents      []DocumentRequest `json:"documents,omitempty"`
	View           types.ViewSpec    `json:"view"`
	Agents         []string          `json:"agents,omitempty"`
	Fusion         *bool             `json:"fusion,omitempty"`
	ManualEvents   []types.Event     `json:"manual_events,omitempty"`
	Save           bool              `json:"save"`
}

// TimelineListResponse is the response format for GET /api/timelines.
type TimelineListResponse struct {
	Timelines []TimelineSummaryResponse `json:"timelines"`
	Total     int                       `json:"total"`
}

// TimelineSummaryResponse is one entry in the timeline library listing.
type TimelineSummaryResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	View       types.ViewKind `json:"view"`
	EventCount int            `json:"event_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SearchResultResponse is one entry in the event similarity search response.
type SearchResultResponse struct {
	TimelineID  string  `json:"timeline_id"`
	EventIndex  int     `json:"event_index"`
	Description string  `json:"description"`
	Distance    float64 `json:"distance"`
}

// SearchResponse is the response format for GET /api/search/events.
type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
	Total   int                    `json:"total"`
	Query   string                 `json:"query"`
}

// ProgressMessage is broadcast over the WebSocket hub as a build
// moves through its pipeline stages.
type ProgressMessage struct {
	Type      string    `json:"type"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

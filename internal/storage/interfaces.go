// Package storage provides the persistence interfaces for Chronolex: the
// document corpus the builder reads from, and the library of saved
// timelines.
//
// The interfaces are small and backend-neutral; SQLite is the default
// implementation and PostgreSQL adds embedding-based similarity search on
// top of the same contract.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/scrypster/chronolex/pkg/types"
)

// ErrNotFound is returned when a document or timeline does not exist.
var ErrNotFound = errors.New("not found")

// DocumentStore manages the source-document corpus.
type DocumentStore interface {
	// PutDocument creates or replaces a document (upsert by ID).
	PutDocument(ctx context.Context, doc types.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*types.Document, error)

	// ListDocuments returns all documents, newest first, content included.
	ListDocuments(ctx context.Context) ([]types.Document, error)

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if it does not exist.
	DeleteDocument(ctx context.Context, id string) error
}

// TimelineSummary is a library listing entry, events omitted.
type TimelineSummary struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	View       types.ViewKind `json:"view"`
	EventCount int            `json:"event_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TimelineStore manages the saved-timeline library.
type TimelineStore interface {
	// SaveTimeline persists a built timeline (upsert by ID).
	SaveTimeline(ctx context.Context, t *types.Timeline) error

	// GetTimeline retrieves a saved timeline with its events.
	// Returns ErrNotFound if it does not exist.
	GetTimeline(ctx context.Context, id string) (*types.Timeline, error)

	// ListTimelines returns library summaries, newest first.
	ListTimelines(ctx context.Context) ([]TimelineSummary, error)

	// DeleteTimeline removes a saved timeline.
	// Returns ErrNotFound if it does not exist.
	DeleteTimeline(ctx context.Context, id string) error
}

// Store is the full persistence contract a backend implements.
type Store interface {
	DocumentStore
	TimelineStore

	// Close releases the underlying database resources.
	Close() error
}

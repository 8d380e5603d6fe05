// Package sqlite implements the Chronolex stores on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS timelines (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	view        TEXT NOT NULL,
	view_json   TEXT NOT NULL,
	events_json TEXT NOT NULL,
	stats_json  TEXT NOT NULL,
	event_count INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_timelines_created ON timelines(created_at DESC);
`

// Store implements storage.Store using SQLite. Timelines are display
// artifacts, so their events persist as a JSON blob rather than rows.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database with WAL self-healing: when the
// open fails on stale -shm/-wal files left by a crashed process, the stale
// files are removed and the open retried once.
func NewStore(path string) (*Store, error) {
	store, err := open(path)
	if err == nil {
		return store, nil
	}
	if !isRecoverableWALError(err) || path == ":memory:" {
		return nil, err
	}

	removeStaleWAL(path)
	store, retryErr := open(path)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}
	log.Printf("[sqlite] recovered from stale WAL files for %s", path)
	return store, nil
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer. A single connection serialises writes
	// and avoids SQLITE_BUSY under concurrent handler load; WAL lets
	// readers proceed meanwhile.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to open database") ||
		strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

func removeStaleWAL(path string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			log.Printf("[sqlite] could not remove %s%s: %v", path, suffix, err)
		}
	}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutDocument upserts a document by ID.
func (s *Store) PutDocument(ctx context.Context, doc types.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, content)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content = excluded.content
	`, doc.ID, doc.Name, doc.Content)
	if err != nil {
		return fmt.Errorf("sqlite: put document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, content FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Name, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get document %s: %w", id, err)
	}
	return &doc, nil
}

// ListDocuments returns every document, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, content FROM documents ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Content); err != nil {
			return nil, fmt.Errorf("sqlite: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SaveTimeline upserts a built timeline into the library.
func (s *Store) SaveTimeline(ctx context.Context, t *types.Timeline) error {
	viewJSON, err := json.Marshal(t.View)
	if err != nil {
		return fmt.Errorf("sqlite: marshal view: %w", err)
	}
	eventsJSON, err := json.Marshal(t.Events)
	if err != nil {
		return fmt.Errorf("sqlite: marshal events: %w", err)
	}
	statsJSON, err := json.Marshal(t.Stats)
	if err != nil {
		return fmt.Errorf("sqlite: marshal stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO timelines (id, title, view, view_json, events_json, stats_json, event_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			view = excluded.view,
			view_json = excluded.view_json,
			events_json = excluded.events_json,
			stats_json = excluded.stats_json,
			event_count = excluded.event_count
	`, t.ID, t.Title, string(t.View.Kind), string(viewJSON), string(eventsJSON), string(statsJSON), len(t.Events), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: save timeline %s: %w", t.ID, err)
	}
	return nil
}

// GetTimeline retrieves a saved timeline with its events.
func (s *Store) GetTimeline(ctx context.Context, id string) (*types.Timeline, error) {
	var (
		t          types.Timeline
		viewJSON   string
		eventsJSON string
		statsJSON  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, view_json, events_json, stats_json, created_at
		FROM timelines WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &viewJSON, &eventsJSON, &statsJSON, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get timeline %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(viewJSON), &t.View); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal view: %w", err)
	}
	if err := json.Unmarshal([]byte(eventsJSON), &t.Events); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal events: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &t.Stats); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal stats: %w", err)
	}
	return &t, nil
}

// ListTimelines returns library summaries, newest first.
func (s *Store) ListTimelines(ctx context.Context) ([]storage.TimelineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, view, event_count, created_at
		FROM timelines ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list timelines: %w", err)
	}
	defer rows.Close()

	var summaries []storage.TimelineSummary
	for rows.Next() {
		var (
			s2   storage.TimelineSummary
			view string
			ts   time.Time
		)
		if err := rows.Scan(&s2.ID, &s2.Title, &view, &s2.EventCount, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan timeline summary: %w", err)
		}
		s2.View = types.ViewKind(view)
		s2.CreatedAt = ts
		summaries = append(summaries, s2)
	}
	return summaries, rows.Err()
}

// DeleteTimeline removes a saved timeline.
func (s *Store) DeleteTimeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM timelines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete timeline %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)

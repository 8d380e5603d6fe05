// Package postgres implements the Chronolex stores on PostgreSQL with
// pgvector. Beyond the base Store contract it embeds event descriptions at
// save time, enabling similarity search across the saved-timeline library.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"

	"github.com/scrypster/chronolex/internal/llm"
	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/pkg/types"
)

// Config holds PostgreSQL store settings.
type Config struct {
	// DSN is the connection string
	DSN string

	// EmbeddingDim is the vector dimension of the configured embedding
	// model (default: 768, nomic-embed-text)
	EmbeddingDim int
}

// Store implements storage.Store using PostgreSQL. When an embedding
// generator is provided, saved events also get an embedding row for
// similarity search; embedding failures are logged and skipped so a dead
// embedding backend never blocks a save.
type Store struct {
	db       *sql.DB
	embedder llm.EmbeddingGenerator
}

// EventMatch is one similarity search hit.
type EventMatch struct {
	TimelineID  string  `json:"timeline_id"`
	EventIndex  int     `json:"event_index"`
	Description string  `json:"description"`
	Distance    float64 `json:"distance"`
}

// NewStore connects and ensures the schema. embedder may be nil to run
// without similarity search.
func NewStore(cfg Config, embedder llm.EmbeddingGenerator) (*Store, error) {
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = 768
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := ensureSchema(db, cfg.EmbeddingDim); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, embedder: embedder}, nil
}

func ensureSchema(db *sql.DB, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS timelines (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL DEFAULT '',
			view        TEXT NOT NULL,
			view_json   JSONB NOT NULL,
			events_json JSONB NOT NULL,
			stats_json  JSONB NOT NULL,
			event_count INTEGER NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS event_embeddings (
			timeline_id TEXT NOT NULL REFERENCES timelines(id) ON DELETE CASCADE,
			event_index INTEGER NOT NULL,
			description TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			PRIMARY KEY (timeline_id, event_index)
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_timelines_created ON timelines(created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres: schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutDocument upserts a document by ID.
func (s *Store) PutDocument(ctx context.Context, doc types.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			content = EXCLUDED.content
	`, doc.ID, doc.Name, doc.Content)
	if err != nil {
		return fmt.Errorf("postgres: put document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, content FROM documents WHERE id = $1", id,
	).Scan(&doc.ID, &doc.Name, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get document %s: %w", id, err)
	}
	return &doc, nil
}

// ListDocuments returns every document, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, content FROM documents ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Content); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SaveTimeline upserts a timeline and refreshes its event embeddings.
func (s *Store) SaveTimeline(ctx context.Context, t *types.Timeline) error {
	viewJSON, err := json.Marshal(t.View)
	if err != nil {
		return fmt.Errorf("postgres: marshal view: %w", err)
	}
	eventsJSON, err := json.Marshal(t.Events)
	if err != nil {
		return fmt.Errorf("postgres: marshal events: %w", err)
	}
	statsJSON, err := json.Marshal(t.Stats)
	if err != nil {
		return fmt.Errorf("postgres: marshal stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO timelines (id, title, view, view_json, events_json, stats_json, event_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			view = EXCLUDED.view,
			view_json = EXCLUDED.view_json,
			events_json = EXCLUDED.events_json,
			stats_json = EXCLUDED.stats_json,
			event_count = EXCLUDED.event_count
	`, t.ID, t.Title, string(t.View.Kind), viewJSON, eventsJSON, statsJSON, len(t.Events), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save timeline %s: %w", t.ID, err)
	}

	if s.embedder != nil {
		s.refreshEmbeddings(ctx, t)
	}
	return nil
}

func (s *Store) refreshEmbeddings(ctx context.Context, t *types.Timeline) {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM event_embeddings WHERE timeline_id = $1", t.ID); err != nil {
		log.Printf("[postgres] clearing embeddings for %s: %v", t.ID, err)
		return
	}
	for i, e := range t.Events {
		vec, err := s.embedder.Embed(ctx, e.Description)
		if err != nil {
			log.Printf("[postgres] embedding event %d of %s: %v", i, t.ID, err)
			continue
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO event_embeddings (timeline_id, event_index, description, embedding)
			VALUES ($1, $2, $3, $4)
		`, t.ID, i, e.Description, pgvector.NewVector(vec))
		if err != nil {
			log.Printf("[postgres] storing embedding %d of %s: %v", i, t.ID, err)
		}
	}
}

// GetTimeline retrieves a saved timeline with its events.
func (s *Store) GetTimeline(ctx context.Context, id string) (*types.Timeline, error) {
	var (
		t          types.Timeline
		viewJSON   []byte
		eventsJSON []byte
		statsJSON  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, view_json, events_json, stats_json, created_at
		FROM timelines WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &viewJSON, &eventsJSON, &statsJSON, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get timeline %s: %w", id, err)
	}

	if err := json.Unmarshal(viewJSON, &t.View); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal view: %w", err)
	}
	if err := json.Unmarshal(eventsJSON, &t.Events); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal events: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &t.Stats); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal stats: %w", err)
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
		return nil, fmt.Errorf("postgres: list timelines: %w", err)
	}
	defer rows.Close()

	var summaries []storage.TimelineSummary
	for rows.Next() {
		var (
			sum  storage.TimelineSummary
			view string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &view, &sum.EventCount, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan timeline summary: %w", err)
		}
		sum.View = types.ViewKind(view)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteTimeline removes a saved timeline; its embeddings cascade.
func (s *Store) DeleteTimeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM timelines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete timeline %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SearchSimilarEvents finds saved events whose descriptions are
// semantically close to the query, using cosine distance over pgvector.
// Requires an embedding generator.
func (s *Store) SearchSimilarEvents(ctx context.Context, query string, limit int) ([]EventMatch, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("postgres: similarity search requires an embedding generator")
	}
	if limit <= 0 {
		limit = 10
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: embedding query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timeline_id, event_index, description, embedding <=> $1 AS distance
		FROM event_embeddings
		ORDER BY distance
		LIMIT $2
	`, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: similarity search: %w", err)
	}
	defer rows.Close()

	var matches []EventMatch
	for rows.Next() {
		var m EventMatch
		if err := rows.Scan(&m.TimelineID, &m.EventIndex, &m.Description, &m.Distance); err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

var _ storage.Store = (*Store)(nil)

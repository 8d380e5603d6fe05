package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/chronolex/internal/storage"
	"github.com/scrypster/chronolex/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "chronolex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDocumentCRUD(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	doc := types.Document{ID: "doc-1", Name: "plainte.txt", Content: "Le 15/03/2024, perquisition au siège."}
	require.NoError(t, store.PutDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc, *got)

	// Upsert replaces content.
	doc.Content = "Le 20/03/2024, audition du dirigeant."
	require.NoError(t, store.PutDocument(ctx, doc))
	got, err = store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentNotFound(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteDocument(ctx, "missing"), storage.ErrNotFound)
}

func TestTimelineRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	tl := &types.Timeline{
		ID:    "tl-1",
		Title: "Dossier Alpha",
		View:  types.ViewSpec{Kind: types.ViewProcedure},
		Events: []types.Event{
			{
				ID:          "ev-1",
				Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				Description: "Perquisition au siège de la société Alpha",
				Importance:  8,
				Category:    types.CategoryInvestigation,
				Actors:      []string{"Société Alpha"},
				Source:      "plainte.txt",
				Confidence:  0.9,
				Origin:      types.OriginFusion,
				Metadata:    map[string]any{"contributing_agents": []any{"legal_context"}},
			},
		},
		CreatedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		Stats:     types.BuildStats{Documents: 1, Agents: 4, Extracted: 6, Fused: 1},
	}
	require.NoError(t, store.SaveTimeline(ctx, tl))

	got, err := store.GetTimeline(ctx, "tl-1")
	require.NoError(t, err)
	assert.Equal(t, tl.ID, got.ID)
	assert.Equal(t, tl.Title, got.Title)
	assert.Equal(t, tl.View, got.View)
	assert.Equal(t, tl.Stats, got.Stats)
	require.Len(t, got.Events, 1)
	assert.Equal(t, tl.Events[0].Description, got.Events[0].Description)
	assert.True(t, tl.Events[0].Date.Equal(got.Events[0].Date))
	assert.Equal(t, tl.Events[0].Metadata["contributing_agents"], got.Events[0].Metadata["contributing_agents"])
}

func TestTimelineList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i, id := range []string{"tl-a", "tl-b"} {
		tl := &types.Timeline{
			ID:        id,
			Title:     id,
			View:      types.ViewSpec{Kind: types.ViewComplete},
			Events:    []types.Event{{ID: "ev", Description: "x"}},
			CreatedAt: time.Date(2024, 4, 1+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, store.SaveTimeline(ctx, tl))
	}

	summaries, err := store.ListTimelines(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	// Newest first.
	assert.Equal(t, "tl-b", summaries[0].ID)
	assert.Equal(t, types.ViewComplete, summaries[0].View)
	assert.Equal(t, 1, summaries[0].EventCount)
}

func TestTimelineDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	tl := &types.Timeline{ID: "tl-1", View: types.ViewSpec{Kind: types.ViewComplete}, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveTimeline(ctx, tl))
	require.NoError(t, store.DeleteTimeline(ctx, "tl-1"))
	_, err := store.GetTimeline(ctx, "tl-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteTimeline(ctx, "tl-1"), storage.ErrNotFound)
}

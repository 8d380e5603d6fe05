package timeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/scrypster/chronolex/pkg/types"
)

func TestDeduplicateMergesSameOccurrence(t *testing.T) {
	d := NewDeduplicator()
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []types.Event{
		{
			ID:          "a",
			Date:        date,
			Description: "Perquisition au siège de la société Alpha par la brigade financière",
			Importance:  6,
			Category:    types.CategoryInvestigation,
			Actors:      []string{"M. Dupont"},
			Confidence:  0.8,
			Metadata:    map[string]any{"pattern_type": "legal_specific"},
		},
		{
			ID:          "b",
			Date:        date,
			Description: "Perquisition au siège de la société Alpha, saisie de documents",
			Importance:  8,
			Category:    types.CategoryInvestigation,
			Actors:      []string{"m. dupont", "Mme Martin"},
			Confidence:  0.7,
			Metadata:    map[string]any{"structure_type": "dated_list"},
		},
	}

	got := d.Deduplicate(events)
	if len(got) != 1 {
		t.Fatalf("Deduplicate kept %d events, want 1", len(got))
	}
	keeper := got[0]
	if keeper.Importance != 8 {
		t.Errorf("keeper importance = %d, want max 8", keeper.Importance)
	}
	if keeper.ID != "b" {
		t.Errorf("keeper = %s, want the most important duplicate", keeper.ID)
	}
	// Actor union is case-insensitive.
	if len(keeper.Actors) != 2 {
		t.Errorf("actor union = %v, want 2 distinct names", keeper.Actors)
	}
	if _, ok := keeper.Metadata["pattern_type"]; !ok {
		t.Error("shadowed duplicate's metadata not absorbed")
	}
	if _, ok := keeper.Metadata["structure_type"]; !ok {
		t.Error("keeper's own metadata lost")
	}
}

func TestDeduplicateKeepsDistinctEvents(t *testing.T) {
	d := NewDeduplicator()
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []types.Event{
		{ID: "a", Date: date, Description: "Perquisition au siège", Importance: 6, Category: types.CategoryInvestigation},
		{ID: "b", Date: date, Description: "Audition du dirigeant", Importance: 6, Category: types.CategoryInvestigation},
		{ID: "c", Date: date.AddDate(0, 0, 1), Description: "Perquisition au siège", Importance: 6, Category: types.CategoryInvestigation},
		{ID: "d", Date: date, Description: "Perquisition au siège", Importance: 6, Category: types.CategoryFinancial},
	}

	got := d.Deduplicate(events)
	if len(got) != 4 {
		t.Fatalf("Deduplicate collapsed distinct events: %d of 4 kept", len(got))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	d := NewDeduplicator()
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []types.Event{
		{ID: "a", Date: date, Description: "Perquisition au siège", Importance: 6, Category: types.CategoryInvestigation},
		{ID: "b", Date: date, Description: "perquisition au siège et saisie", Importance: 4, Category: types.CategoryInvestigation},
		{ID: "c", Date: date.AddDate(0, 0, 5), Description: "Audition", Importance: 5, Category: types.CategoryInvestigation},
	}

	once := d.Deduplicate(events)
	twice := d.Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Deduplicate is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestDeduplicateDoesNotMutateInput(t *testing.T) {
	d := NewDeduplicator()
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []types.Event{
		{ID: "b", Date: date.AddDate(0, 0, 1), Description: "Audition", Importance: 5, Category: types.CategoryInvestigation},
		{ID: "a", Date: date, Description: "Perquisition", Importance: 6, Category: types.CategoryInvestigation},
	}
	d.Deduplicate(events)
	if events[0].ID != "b" || events[1].ID != "a" {
		t.Error("input slice was reordered")
	}
}

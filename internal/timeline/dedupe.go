package timeline

import (
	"sort"

	"github.com/scrypster/chronolex/pkg/types"
)

// Deduplicator collapses events describing the same occurrence. Identity
// is the (date, category, description-prefix) key; within a key the most
// important event survives and absorbs the actors and metadata of the
// duplicates it shadows.
type Deduplicator struct{}

// NewDeduplicator returns a stateless deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate returns the surviving events ordered by date. Running the
// result through Deduplicate again returns it unchanged.
func (d *Deduplicator) Deduplicate(events []types.Event) []types.Event {
	if len(events) <= 1 {
		return append([]types.Event(nil), events...)
	}

	// Sort by (date, importance desc) so the keeper of each key is always
	// the most important duplicate.
	sorted := append([]types.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Importance > sorted[j].Importance
	})

	var unique []types.Event
	index := make(map[string]int)
	for _, e := range sorted {
		key := e.IdentityKey()
		at, seen := index[key]
		if !seen {
			index[key] = len(unique)
			unique = append(unique, e)
			continue
		}
		merge(&unique[at], &e)
	}
	return unique
}

// merge folds a shadowed duplicate into its keeper: actor union, max
// importance, and metadata union where the keeper's entries win.
func merge(keeper *types.Event, dup *types.Event) {
	for _, actor := range dup.Actors {
		if !keeper.HasActor(actor) {
			keeper.Actors = append(keeper.Actors, actor)
		}
	}
	if dup.Importance > keeper.Importance {
		keeper.Importance = dup.Importance
	}
	if len(dup.Metadata) > 0 {
		if keeper.Metadata == nil {
			keeper.Metadata = make(map[string]any, len(dup.Metadata))
		}
		for k, v := range dup.Metadata {
			if _, exists := keeper.Metadata[k]; !exists {
				keeper.Metadata[k] = v
			}
		}
	}
}

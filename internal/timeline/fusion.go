package timeline

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/chronolex/pkg/types"
)

// Fusion confidence model: agreement between independent agents is the
// only thing that raises confidence above the single-source floor.
const (
	fusionBaseConfidence = 0.6
	fusionAgentBonus     = 0.1
	fusionMaxConfidence  = 0.95
	maxFusedActors       = 5
)

// FusionEngine merges the per-agent result sets into one consensus
// timeline. Events are grouped by identity key; groups seen by a single
// agent drop to the floor confidence, groups confirmed by several agents
// gain confidence with each confirmation.
type FusionEngine struct{}

// NewFusionEngine returns a stateless fusion engine.
func NewFusionEngine() *FusionEngine {
	return &FusionEngine{}
}

// Fuse merges per-agent deduplicated events. Output is ordered by date
// ascending, importance descending.
func (f *FusionEngine) Fuse(perAgent map[types.AgentKind][]types.Event) []types.Event {
	groups := make(map[string][]types.Event)
	var order []string
	for _, kind := range types.AllAgentKinds {
		for _, e := range perAgent[kind] {
			key := e.IdentityKey()
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], e)
		}
	}

	fused := make([]types.Event, 0, len(order))
	for _, key := range order {
		fused = append(fused, fuseGroup(groups[key]))
	}
	SortEvents(fused)
	return fused
}

// fuseGroup collapses one identity group into a single consensus event.
func fuseGroup(group []types.Event) types.Event {
	agents := contributingAgents(group)

	if len(group) == 1 {
		e := group[0]
		// A fact only one agent saw is plausible but unconfirmed.
		e.Confidence = fusionBaseConfidence
		setContributing(&e, agents)
		return e
	}

	keeper := group[0]
	importanceSum := 0
	for _, e := range group {
		importanceSum += e.Importance
		if len(e.Description) > len(keeper.Description) {
			keeper = e
		}
	}

	confidence := fusionBaseConfidence + fusionAgentBonus*float64(len(agents))
	if confidence > fusionMaxConfidence {
		confidence = fusionMaxConfidence
	}

	fusedEvent := types.Event{
		ID:          uuid.New().String(),
		Date:        keeper.Date,
		Description: keeper.Description,
		Importance:  int(math.Round(float64(importanceSum) / float64(len(group)))),
		Category:    keeper.Category,
		Actors:      fuseActors(group),
		Source:      keeper.Source,
		Confidence:  confidence,
		Origin:      types.OriginFusion,
		Metadata:    map[string]any{},
	}
	for k, v := range keeper.Metadata {
		fusedEvent.Metadata[k] = v
	}
	setContributing(&fusedEvent, agents)
	return fusedEvent
}

func contributingAgents(group []types.Event) []string {
	seen := make(map[types.AgentKind]bool)
	for _, e := range group {
		if e.Agent != "" {
			seen[e.Agent] = true
		}
	}
	agents := make([]string, 0, len(seen))
	for kind := range seen {
		agents = append(agents, string(kind))
	}
	sort.Strings(agents)
	return agents
}

func setContributing(e *types.Event, agents []string) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata["contributing_agents"] = agents
}

// fuseActors unions the group's actors capped to the most frequent names,
// frequency being appearances across every contributing description.
func fuseActors(group []types.Event) []string {
	combined := strings.Builder{}
	for _, e := range group {
		combined.WriteString(e.Description)
		combined.WriteString("\n")
	}
	text := combined.String()

	seen := make(map[string]bool)
	type rankedActor struct {
		name  string
		count int
	}
	var ranked []rankedActor
	for _, e := range group {
		for _, actor := range e.Actors {
			lower := strings.ToLower(actor)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			ranked = append(ranked, rankedActor{actor, strings.Count(text, actor)})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > maxFusedActors {
		ranked = ranked[:maxFusedActors]
	}
	actors := make([]string, len(ranked))
	for i, r := range ranked {
		actors[i] = r.name
	}
	return actors
}

// SortEvents orders a timeline by date ascending, importance descending.
// Every pipeline stage that emits a full timeline ends with this order.
func SortEvents(events []types.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Importance > events[j].Importance
	})
}

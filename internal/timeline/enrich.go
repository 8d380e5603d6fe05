package timeline

import (
	"strings"
	"time"

	"github.com/scrypster/chronolex/pkg/types"
)

// Link detection thresholds.
const (
	// events within this many days are temporally linked
	temporalLinkDays = 7

	// descriptions sharing more than this many tokens are content-linked
	contentLinkMinWords = 5

	// months with at least this many events form a high-density period
	highDensityThreshold = 3
)

// Enrichment metadata keys and tag values.
const (
	metaLinkedEvents = "linked_events"
	metaPattern      = "pattern"
	metaTags         = "tags"
	metaPhase        = "phase"
	metaRole         = "role"

	patternHighDensity = "high_density_period"
	patternEscalation  = "escalation"

	tagFinancial  = "financial"
	tagUrgent     = "urgent"
	tagCritical   = "critical"
	tagMultiActor = "multi_actor"
	tagEscalation = "escalation"

	roleTurningPoint = "turning_point"
	roleTrigger      = "trigger"
)

// EnrichmentPass annotates a fused timeline in place: cross-event links,
// monthly patterns, smart tags, and narrative phases. Links reference
// events by index into the enriched slice, so the pass must run after the
// final ordering is fixed.
type EnrichmentPass struct{}

// NewEnrichmentPass returns a stateless enrichment pass.
func NewEnrichmentPass() *EnrichmentPass {
	return &EnrichmentPass{}
}

// Enrich runs every annotation stage over the ordered timeline. Events
// are modified in place; the slice itself is never reordered.
func (p *EnrichmentPass) Enrich(events []types.Event) {
	if len(events) == 0 {
		return
	}
	for i := range events {
		if events[i].Metadata == nil {
			events[i].Metadata = make(map[string]any)
		}
	}
	p.detectLinks(events)
	p.markPatterns(events)
	p.applyTags(events)
	p.assignPhases(events)
	for i := range events {
		enrichLegalMetadata(&events[i])
	}
}

// detectLinks connects each event to temporally close, actor-sharing, or
// lexically overlapping neighbors. Every event gets a link list, empty
// for isolated events.
func (p *EnrichmentPass) detectLinks(events []types.Event) {
	tokenSets := make([]map[string]bool, len(events))
	for i := range events {
		tokenSets[i] = tokenize(events[i].Description)
	}

	for i := range events {
		links := []types.EventLink{}
		for j := range events {
			if i == j {
				continue
			}
			days := daysBetween(events[i].Date, events[j].Date)
			if days <= temporalLinkDays {
				links = append(links, types.EventLink{
					Target:   j,
					Type:     types.LinkTemporal,
					Strength: 1 - float64(days)/float64(temporalLinkDays),
				})
			}
			if shared := commonActors(&events[i], &events[j]); shared > 0 {
				denom := len(events[i].Actors)
				if len(events[j].Actors) > denom {
					denom = len(events[j].Actors)
				}
				links = append(links, types.EventLink{
					Target:   j,
					Type:     types.LinkActors,
					Strength: float64(shared) / float64(denom),
				})
			}
			common := 0
			for w := range tokenSets[i] {
				if tokenSets[j][w] {
					common++
				}
			}
			if common > contentLinkMinWords {
				denom := len(tokenSets[i])
				if len(tokenSets[j]) > denom {
					denom = len(tokenSets[j])
				}
				links = append(links, types.EventLink{
					Target:   j,
					Type:     types.LinkContent,
					Strength: float64(common) / float64(denom),
				})
			}
		}
		events[i].Metadata[metaLinkedEvents] = links
	}
}

// markPatterns groups events by calendar month and flags dense months and
// months with steadily rising importance.
func (p *EnrichmentPass) markPatterns(events []types.Event) {
	monthly := make(map[string][]int)
	var monthOrder []string
	for i, e := range events {
		key := e.Date.Format("2006-01")
		if _, seen := monthly[key]; !seen {
			monthOrder = append(monthOrder, key)
		}
		monthly[key] = append(monthly[key], i)
	}

	for _, month := range monthOrder {
		indices := monthly[month]
		if len(indices) >= highDensityThreshold {
			for _, i := range indices {
				events[i].Metadata[metaPattern] = patternHighDensity
			}
		}
		if len(indices) >= 2 {
			// indices follow timeline order, which is date order
			escalating := true
			for k := 1; k < len(indices); k++ {
				if events[indices[k-1]].Importance > events[indices[k]].Importance {
					escalating = false
					break
				}
			}
			if escalating {
				for _, i := range indices {
					events[i].Metadata[metaPattern] = patternEscalation
				}
			}
		}
	}
}

// applyTags derives display tags from content and detected patterns.
func (p *EnrichmentPass) applyTags(events []types.Event) {
	for i := range events {
		e := &events[i]
		tags := []string{}
		lower := strings.ToLower(e.Description)

		if reAmount.MatchString(e.Description) {
			tags = append(tags, tagFinancial)
		}
		if containsAny(lower, []string{"urgent", "immédiat", "critique"}) {
			tags = append(tags, tagUrgent)
		}
		if e.Importance >= 8 {
			tags = append(tags, tagCritical)
		}
		if len(e.Actors) >= 3 {
			tags = append(tags, tagMultiActor)
		}
		if e.Metadata[metaPattern] == patternEscalation {
			tags = append(tags, tagEscalation)
		}
		e.Metadata[metaTags] = tags
	}
}

// assignPhases places each event in the case narrative by its fractional
// position inside the timeline span, then marks turning points and
// triggers.
func (p *EnrichmentPass) assignPhases(events []types.Event) {
	first := events[0].Date
	last := events[len(events)-1].Date
	span := daysBetween(first, last)

	for i := range events {
		e := &events[i]
		position := 0.0
		if span > 0 {
			position = float64(daysBetween(first, e.Date)) / float64(span)
		}
		phase := types.PhaseConclusion
		switch {
		case position < 0.2:
			phase = types.PhaseInitial
		case position < 0.8:
			phase = types.PhaseDevelopment
		}
		e.Metadata[metaPhase] = string(phase)

		if e.Importance >= 8 && phase == types.PhaseDevelopment {
			e.Metadata[metaRole] = roleTurningPoint
		} else if phase == types.PhaseInitial && e.Category == types.CategoryProcedure {
			e.Metadata[metaRole] = roleTrigger
		}
	}
}

// daysBetween returns the absolute whole-day distance between two dates.
func daysBetween(a, b time.Time) int {
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// commonActors counts case-insensitively shared actor names.
func commonActors(a, b *types.Event) int {
	shared := 0
	for _, actor := range a.Actors {
		if b.HasActor(actor) {
			shared++
		}
	}
	return shared
}

// tokenize lowercases and splits a description into its word set.
func tokenize(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

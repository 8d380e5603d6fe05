package timeline

import (
	"strings"

	"github.com/scrypster/chronolex/pkg/types"
)

// TypeFilter applies a view's constraints to extracted events. Constraints
// compose conjunctively: an event survives only when every active
// constraint admits it.
type TypeFilter struct {
	spec types.ViewSpec

	categories        map[types.Category]bool
	excludeProcedural bool
	actKeywords       []string
	factKeywords      []string
	synonyms          []string
}

// NewTypeFilter compiles a view spec into a filter. The spec must already
// be validated.
func NewTypeFilter(spec types.ViewSpec) *TypeFilter {
	f := &TypeFilter{spec: spec}
	switch spec.Kind {
	case types.ViewComplete:
		// no constraints
	case types.ViewProcedure:
		f.categories = map[types.Category]bool{
			types.CategoryInvestigation: true,
			types.CategoryInstruction:   true,
			types.CategoryProcedure:     true,
			types.CategoryCoercive:      true,
		}
	case types.ViewFacts:
		f.excludeProcedural = true
	case types.ViewAuditions:
		f.actKeywords = auditionKeywords
	case types.ViewSpecificFact:
		f.factKeywords = []string{lowerTrim(spec.TargetFact)}
		if spec.IncludeRelated {
			f.factKeywords = append(f.factKeywords, relatedFactKeywords(spec.TargetFact)...)
		}
	case types.ViewActType:
		f.synonyms = actTypeSynonyms(spec.ActType)
	}
	return f
}

// Apply returns the events the view admits, preserving input order. The
// input slice is never mutated.
func (f *TypeFilter) Apply(events []types.Event) []types.Event {
	filtered := make([]types.Event, 0, len(events))
	for _, e := range events {
		if f.admits(&e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func (f *TypeFilter) admits(e *types.Event) bool {
	if f.categories != nil && !f.categories[e.Category] {
		return false
	}
	if f.excludeProcedural && proceduralCategories[e.Category] {
		return false
	}
	desc := strings.ToLower(e.Description)
	if f.actKeywords != nil && !matchesAny(desc, f.actKeywords) {
		return false
	}
	if f.factKeywords != nil && !matchesAny(desc, f.factKeywords) {
		return false
	}
	if f.synonyms != nil && !matchesAny(desc, f.synonyms) {
		return false
	}
	return true
}

func matchesAny(desc string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

package types

import "fmt"

// ViewKind selects one of the predefined timeline views.
type ViewKind string

// Timeline view constants. Each view is a fixed conjunction of filter
// constraints applied to extracted events.
const (
	// ViewComplete keeps every event
	ViewComplete ViewKind = "complete"

	// ViewProcedure keeps only procedural acts (investigation, instruction,
	// procedure, coercive measures)
	ViewProcedure ViewKind = "procedure"

	// ViewFacts keeps substantive facts, excluding procedural acts
	ViewFacts ViewKind = "facts"

	// ViewSpecificFact keeps events mentioning a target fact, optionally
	// widened to related infractions
	ViewSpecificFact ViewKind = "specific_fact"

	// ViewActType keeps events matching a procedural act type and its
	// synonyms
	ViewActType ViewKind = "act_type"

	// ViewAuditions keeps hearing-related events only
	ViewAuditions ViewKind = "auditions"
)

// AllViewKinds lists every valid view kind.
var AllViewKinds = []ViewKind{
	ViewComplete,
	ViewProcedure,
	ViewFacts,
	ViewSpecificFact,
	ViewActType,
	ViewAuditions,
}

// ViewSpec is a fully specified timeline view: the kind plus the
// parameters some kinds require.
type ViewSpec struct {
	// Kind selects the view
	Kind ViewKind `json:"kind"`

	// TargetFact is the fact keyword for ViewSpecificFact (e.g. "abus de
	// biens sociaux")
	TargetFact string `json:"target_fact,omitempty"`

	// IncludeRelated widens ViewSpecificFact to related infractions
	IncludeRelated bool `json:"include_related,omitempty"`

	// ActType is the act keyword for ViewActType (e.g. "perquisitions")
	ActType string `json:"act_type,omitempty"`
}

// Validate checks that the spec's kind is known and its required
// parameters are present.
func (v ViewSpec) Validate() error {
	known := false
	for _, k := range AllViewKinds {
		if v.Kind == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown view kind %q", v.Kind)
	}
	if v.Kind == ViewSpecificFact && v.TargetFact == "" {
		return fmt.Errorf("view %s requires a target fact", v.Kind)
	}
	if v.Kind == ViewActType && v.ActType == "" {
		return fmt.Errorf("view %s requires an act type", v.Kind)
	}
	return nil
}

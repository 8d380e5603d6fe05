// Package types defines the core data structures for the Chronolex timeline
// system. These types represent extracted events, timeline views, and the
// extraction agents that produce them.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies an event by the legal domain it belongs to.
type Category string

// Event category constants. The set is closed: classification always
// resolves to one of these, falling back to CategoryOther.
const (
	// CategoryInvestigation covers police inquiry acts (enquête, perquisition,
	// garde à vue, audition, saisie)
	CategoryInvestigation Category = "investigation"

	// CategoryInstruction covers acts of the examining magistrate
	// (mise en examen, ordonnance, commission rogatoire)
	CategoryInstruction Category = "judicial_instruction"

	// CategoryProcedure covers court process acts (audience, jugement,
	// appel, citation, assignation)
	CategoryProcedure Category = "procedure"

	// CategoryFinancial covers financial offence facts (virement, facture,
	// abus de biens, blanchiment, corruption)
	CategoryFinancial Category = "financial"

	// CategoryFiscal covers tax matters (fraude fiscale, redressement, TVA)
	CategoryFiscal Category = "fiscal"

	// CategoryLabor covers employment matters (licenciement, contrat de
	// travail, prud'hommes)
	CategoryLabor Category = "labor"

	// CategoryCompliance covers regulatory matters (déclaration, agrément,
	// conformité, AMF, ACPR)
	CategoryCompliance Category = "compliance"

	// CategoryCoercive covers coercive measures (contrôle judiciaire,
	// détention provisoire, gel des avoirs, interdiction)
	CategoryCoercive Category = "coercive_measure"

	// CategoryOther is the fallback when no keyword family scores
	CategoryOther Category = "other"
)

// AllCategories lists every valid category, for validation and iteration.
var AllCategories = []Category{
	CategoryInvestigation,
	CategoryInstruction,
	CategoryProcedure,
	CategoryFinancial,
	CategoryFiscal,
	CategoryLabor,
	CategoryCompliance,
	CategoryCoercive,
	CategoryOther,
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c Category) bool {
	for _, v := range AllCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Origin records how an event entered the system.
type Origin string

const (
	// OriginAgent marks events produced by an extraction agent
	OriginAgent Origin = "agent"

	// OriginFusion marks events produced by merging multi-agent results
	OriginFusion Origin = "fusion"

	// OriginManual marks operator-entered events that bypass extraction
	OriginManual Origin = "manual"
)

// NarrativePhase positions an event inside the overall case narrative.
type NarrativePhase string

const (
	// PhaseInitial covers the first fifth of the timeline span
	PhaseInitial NarrativePhase = "initial"

	// PhaseDevelopment covers the middle of the timeline span
	PhaseDevelopment NarrativePhase = "development"

	// PhaseConclusion covers the final fifth of the timeline span
	PhaseConclusion NarrativePhase = "conclusion"
)

// Event is a single dated occurrence extracted from a legal document.
// Date is always a resolved calendar day: events whose date expression
// could not be resolved are discarded upstream and never reach this type
// with a zero Date.
type Event struct {
	// ID is a UUID assigned at creation
	ID string `json:"id"`

	// Date is the resolved calendar date (time-of-day is always midnight UTC)
	Date time.Time `json:"date"`

	// Description is the cleaned surrounding text, capped near 300 characters
	// at a sentence boundary
	Description string `json:"description"`

	// Importance is a 1..10 significance score (10 = decisive procedural act)
	Importance int `json:"importance"`

	// Category is the legal domain classification
	Category Category `json:"category"`

	// Actors holds up to 5 person/organization names, most frequent first
	Actors []string `json:"actors,omitempty"`

	// Source identifies the document the event came from
	Source string `json:"source"`

	// Confidence is the extraction confidence in [0, 1]
	Confidence float64 `json:"confidence"`

	// Origin records whether the event came from an agent, fusion, or an
	// operator
	Origin Origin `json:"origin"`

	// Agent names the extraction strategy that produced the event
	// (empty for manual events)
	Agent AgentKind `json:"agent,omitempty"`

	// Metadata carries extraction diagnostics, enrichment output and links
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the invariants every event must satisfy before it enters
// the pipeline.
func (e *Event) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("event %s: zero date", e.ID)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("event %s: empty description", e.ID)
	}
	if e.Importance < 1 || e.Importance > 10 {
		return fmt.Errorf("event %s: importance %d outside 1..10", e.ID, e.Importance)
	}
	if !IsValidCategory(e.Category) {
		return fmt.Errorf("event %s: unknown category %q", e.ID, e.Category)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("event %s: confidence %.2f outside [0,1]", e.ID, e.Confidence)
	}
	return nil
}

// IdentityKey returns the deduplication key: calendar date, category, and
// the lowercase first 30 characters of the description. Two events with the
// same key describe the same occurrence.
func (e *Event) IdentityKey() string {
	desc := strings.ToLower(e.Description)
	runes := []rune(desc)
	if len(runes) > 30 {
		desc = string(runes[:30])
	}
	return e.Date.Format("2006-01-02") + "|" + string(e.Category) + "|" + desc
}

// HasActor reports whether name appears in the actor list (case-insensitive).
func (e *Event) HasActor(name string) bool {
	for _, a := range e.Actors {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// EventLink is a detected relation between two events in an enriched
// timeline. Target is an index into the timeline's event slice, not a
// pointer, so timelines survive serialization round-trips intact.
type EventLink struct {
	// Target is the index of the linked event
	Target int `json:"target"`

	// Type is one of "temporal", "actors", "content"
	Type string `json:"type"`

	// Strength is the link weight in (0, 1]
	Strength float64 `json:"strength"`
}

// Link type constants
const (
	LinkTemporal = "temporal"
	LinkActors   = "actors"
	LinkContent  = "content"
)

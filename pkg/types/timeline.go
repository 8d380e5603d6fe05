package types

import "time"

// Timeline is a completed, enriched chronology ready for display or
// persistence. Events are ordered by date ascending, importance descending.
type Timeline struct {
	// ID is a UUID assigned when the timeline is built
	ID string `json:"id"`

	// Title is an operator-supplied name for saved timelines
	Title string `json:"title,omitempty"`

	// View is the view the timeline was built with
	View ViewSpec `json:"view"`

	// Events is the ordered, enriched event list
	Events []Event `json:"events"`

	// CreatedAt is the build completion time
	CreatedAt time.Time `json:"created_at"`

	// Stats summarizes what happened during the build
	Stats BuildStats `json:"stats"`
}

// BuildStats carries per-stage diagnostics for a single build.
type BuildStats struct {
	// Documents is the number of input documents
	Documents int `json:"documents"`

	// Agents is the number of agents that ran
	Agents int `json:"agents"`

	// AgentsFailed counts agents whose delegate call failed and fell back
	// to the heuristic pass
	AgentsFailed int `json:"agents_failed"`

	// UnitsCompleted counts (document, agent) extraction units that
	// finished before any cancellation
	UnitsCompleted int `json:"units_completed"`

	// UnitsDropped counts units abandoned by timeout or cancellation
	UnitsDropped int `json:"units_dropped"`

	// Extracted is the raw event count across all agents before filtering
	Extracted int `json:"extracted"`

	// Filtered is the event count after the view filter
	Filtered int `json:"filtered"`

	// Deduplicated is the event count after per-agent deduplication
	Deduplicated int `json:"deduplicated"`

	// Fused is the final event count after fusion and manual merge
	Fused int `json:"fused"`

	// DatesRejected counts candidate events dropped for unparseable dates
	DatesRejected int `json:"dates_rejected"`

	// Duration is the wall-clock build time
	Duration time.Duration `json:"duration"`
}

// Span returns the first and last event dates, or zero times for an empty
// timeline.
func (t *Timeline) Span() (time.Time, time.Time) {
	if len(t.Events) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Events[0].Date, t.Events[len(t.Events)-1].Date
}

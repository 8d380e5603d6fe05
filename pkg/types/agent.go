package types

import "fmt"

// AgentKind names one of the extraction strategies. The family is closed:
// adding a strategy means adding a constant here and an implementation in
// the timeline package.
type AgentKind string

const (
	// AgentPatternDensity scans for date hits and scores the surrounding
	// window with weighted legal keywords
	AgentPatternDensity AgentKind = "pattern_density"

	// AgentLegalContext runs an additional pass with high-signal procedural
	// patterns (garde à vue, mise en examen, ...)
	AgentLegalContext AgentKind = "legal_context"

	// AgentStructured splits the document into sections and favors dated
	// lists and article references
	AgentStructured AgentKind = "structured_section"

	// AgentVerification re-runs density extraction and boosts events backed
	// by article references or monetary amounts
	AgentVerification AgentKind = "verification_focus"
)

// AllAgentKinds lists every valid agent kind.
var AllAgentKinds = []AgentKind{
	AgentPatternDensity,
	AgentLegalContext,
	AgentStructured,
	AgentVerification,
}

// ParseAgentKind validates a string against the known agent kinds.
func ParseAgentKind(s string) (AgentKind, error) {
	for _, k := range AllAgentKinds {
		if s == string(k) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown agent kind %q", s)
}

// Document is a source text submitted for extraction.
type Document struct {
	// ID is a stable identifier (UUID for stored documents, file name for
	// one-shot CLI runs)
	ID string `json:"id"`

	// Name is the display name shown as the event source
	Name string `json:"name"`

	// Content is the full document text
	Content string `json:"content"`
}

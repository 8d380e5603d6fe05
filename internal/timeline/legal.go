package timeline

import (
	"strings"

	"github.com/scrypster/chronolex/pkg/types"
)

// enrichLegalMetadata annotates an event with the legal context the
// description reveals: infraction family, procedural phase, penal risk
// rating and involved authorities. Annotations land in metadata and never
// alter the event's core fields.
func enrichLegalMetadata(e *types.Event) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	if infraction := detectInfraction(e.Description); infraction != "" {
		e.Metadata["infraction_type"] = infraction
	}
	e.Metadata["procedural_phase"] = detectProceduralPhase(e.Description)
	e.Metadata["penal_risk"] = evaluatePenalRisk(e)
	if authorities := identifyAuthorities(e.Description); len(authorities) > 0 {
		e.Metadata["authorities"] = authorities
	}
}

// detectInfraction returns the first infraction family whose markers
// appear in the text, or empty when none match.
func detectInfraction(text string) string {
	lower := strings.ToLower(text)
	// Map iteration order is random; walk a fixed order so repeated runs
	// agree when several families match.
	ordered := []string{
		"abus_biens_sociaux", "corruption", "blanchiment", "escroquerie",
		"faux", "detournement", "delit_initie", "fraude_fiscale",
		"travail_dissimule", "banqueroute",
	}
	for _, infraction := range ordered {
		if containsAny(lower, infractionKeywords[infraction]) {
			return infraction
		}
	}
	return ""
}

// detectProceduralPhase places the event in the French criminal procedure
// sequence, from preliminary inquiry through cassation.
func detectProceduralPhase(text string) string {
	lower := strings.ToLower(text)
	for _, p := range proceduralPhases {
		if containsAny(lower, p.Keywords) {
			return p.Phase
		}
	}
	return "indéterminée"
}

// evaluatePenalRisk scores the penal exposure an event signals and buckets
// it into critique / élevé / modéré / faible.
func evaluatePenalRisk(e *types.Event) string {
	lower := strings.ToLower(e.Description)
	score := 0

	if e.Importance >= 8 {
		score += 3
	}
	if e.Category == types.CategoryInstruction || e.Category == types.CategoryCoercive {
		score += 2
	}
	if strings.Contains(lower, "mise en examen") {
		score += 3
	}
	if strings.Contains(lower, "détention") {
		score += 4
	}
	if containsAny(lower, []string{"corruption", "blanchiment", "abus de biens"}) {
		score += 2
	}

	switch {
	case score >= 7:
		return "critique"
	case score >= 4:
		return "élevé"
	case score >= 2:
		return "modéré"
	default:
		return "faible"
	}
}

// identifyAuthorities lists the judicial and administrative bodies
// mentioned in the text, sorted for stable output.
func identifyAuthorities(text string) []string {
	lower := strings.ToLower(text)
	var authorities []string
	// fixed order keeps output deterministic
	ordered := []string{
		"parquet", "instruction", "police", "gendarmerie", "fisc",
		"douanes", "tracfin", "amf", "acpr", "tribunal",
	}
	for _, authority := range ordered {
		if containsAny(lower, authorityKeywords[authority]) {
			authorities = append(authorities, authority)
		}
	}
	return authorities
}

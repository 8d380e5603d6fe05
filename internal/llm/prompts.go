package llm

import (
	"fmt"
	"strings"

	"github.com/scrypster/chronolex/pkg/types"
)

// Extraction prompts use the strict JSON-only style: the delegate is told
// exactly which fields to emit and that anything outside the JSON array is
// a protocol violation. The focus block changes per view so a procedure
// timeline never wastes delegate attention on substantive facts.

const promptHeader = `TASK: As an expert in French business criminal law, extract dated events from the document excerpt below.
OUTPUT: ONLY a valid JSON array. NO markdown. NO code blocks. NO backticks. NO text before or after the array.

REQUIRED JSON STRUCTURE:
Your response MUST start with [ and end with ]
[
  {
    "date": "15/03/2024",
    "description": "one factual sentence describing the event",
    "importance": 7,
    "category": "investigation",
    "actors": ["M. Durand", "Société Alpha"],
    "confidence": 0.85
  }
]

FIELD RULES:
- date: as written in the document (DD/MM/YYYY, "15 mars 2024", "début janvier 2024", ...). NEVER invent a date.
- importance: integer 1-10 (10 = decisive procedural act such as mise en examen)
- category: one of investigation, judicial_instruction, procedure, financial, fiscal, labor, compliance, coercive_measure, other
- actors: at most 5 person or organization names
- confidence: 0.0-1.0
- Return [] if the excerpt contains no dated event.`

// viewFocus holds the per-view focus block appended to the header.
var viewFocus = map[types.ViewKind]string{
	types.ViewComplete: `FOCUS: every dated event, procedural acts and substantive facts alike.`,

	types.ViewProcedure: `FOCUS: ONLY criminal procedure acts.
- investigation acts: plainte, ouverture d'enquête, perquisitions, saisies, auditions, garde à vue
- instruction acts: saisine du juge d'instruction, mise en examen, ordonnances, expertises
- judicial decisions: réquisitions, renvoi, jugement, appel
- coercive measures: contrôle judiciaire, détention provisoire, gel des avoirs
For each act name the issuing authority and the persons concerned.`,

	types.ViewFacts: `FOCUS: ONLY substantive facts and offences, NOT procedure.
- principal offences: nature, date, amounts, prejudice
- connected offences: blanchiment, recel, complicité
- modus operandi and financial circuits
- the offence period: first act, last act, repetitions`,

	types.ViewSpecificFact: `FOCUS: ONLY elements connected to the target fact named below.
- constitutive acts and their dates
- material and intentional elements
- specific amounts and prejudice
- concealment attempts`,

	types.ViewActType: `FOCUS: ONLY procedural acts of the target type named below, including every textual variant of the act.`,

	types.ViewAuditions: `FOCUS: ONLY hearings and interrogations.
- gardes à vue: dates, duration, prolongations
- auditions libres and witness hearings
- interrogatoires de première comparution
- confrontations
For each hearing name the person heard and their status.`,
}

// BuildExtractionPrompt assembles the full delegate prompt for a view and
// a document excerpt.
func BuildExtractionPrompt(view types.ViewSpec, excerpt string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	focus, ok := viewFocus[view.Kind]
	if !ok {
		focus = viewFocus[types.ViewComplete]
	}
	b.WriteString(focus)

	switch view.Kind {
	case types.ViewSpecificFact:
		fmt.Fprintf(&b, "\nTARGET FACT: %s", view.TargetFact)
		if view.IncludeRelated {
			b.WriteString("\nAlso include connected offences (blanchiment, recel, complicité, dissimulation).")
		}
	case types.ViewActType:
		fmt.Fprintf(&b, "\nTARGET ACT TYPE: %s", view.ActType)
	}

	b.WriteString("\n\nDOCUMENT EXCERPT:\n")
	b.WriteString(excerpt)
	return b.String()
}

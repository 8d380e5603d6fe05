package llm

import (
	"strings"
	"testing"

	"github.com/scrypster/chronolex/pkg/types"
)

func TestBuildExtractionPromptContract(t *testing.T) {
	prompt := BuildExtractionPrompt(types.ViewSpec{Kind: types.ViewComplete}, "extrait du document")

	for _, want := range []string{
		"JSON array",
		"category",
		"confidence",
		"DOCUMENT EXCERPT:",
		"extrait du document",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildExtractionPromptPerView(t *testing.T) {
	seen := make(map[string]bool)
	for _, kind := range types.AllViewKinds {
		prompt := BuildExtractionPrompt(types.ViewSpec{Kind: kind, TargetFact: "corruption", ActType: "perquisitions"}, "x")
		if seen[prompt] {
			t.Errorf("view %s shares its prompt with another view", kind)
		}
		seen[prompt] = true
	}
}

func TestBuildExtractionPromptSpecificFact(t *testing.T) {
	prompt := BuildExtractionPrompt(types.ViewSpec{
		Kind:           types.ViewSpecificFact,
		TargetFact:     "abus de biens sociaux",
		IncludeRelated: true,
	}, "x")

	if !strings.Contains(prompt, "TARGET FACT: abus de biens sociaux") {
		t.Error("target fact missing from prompt")
	}
	if !strings.Contains(prompt, "connected offences") {
		t.Error("related-offence instruction missing despite IncludeRelated")
	}

	without := BuildExtractionPrompt(types.ViewSpec{Kind: types.ViewSpecificFact, TargetFact: "abus de biens sociaux"}, "x")
	if strings.Contains(without, "connected offences") {
		t.Error("related-offence instruction present without IncludeRelated")
	}
}

func TestBuildExtractionPromptActType(t *testing.T) {
	prompt := BuildExtractionPrompt(types.ViewSpec{Kind: types.ViewActType, ActType: "garde à vue"}, "x")
	if !strings.Contains(prompt, "TARGET ACT TYPE: garde à vue") {
		t.Error("target act type missing from prompt")
	}
}

func TestBuildExtractionPromptUnknownViewFallsBack(t *testing.T) {
	prompt := BuildExtractionPrompt(types.ViewSpec{Kind: types.ViewKind("inconnu")}, "x")
	if !strings.Contains(prompt, viewFocus[types.ViewComplete]) {
		t.Error("unknown view did not fall back to the complete focus")
	}
}

package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scrypster/chronolex/pkg/types"
)

const sampleDoc = `Le 15/03/2024 une perquisition a été menée au siège de la société Alpha
par la brigade financière. M. Dupont a été placé en garde à vue.

Le 20/03/2024 : audition de Mme Martin par le juge d'instruction.
Article 314-1 du code pénal visé dans le réquisitoire du 25/03/2024.

Mise en examen de M. Dupont pour corruption le 02/04/2024 avec versement
présumé de 2 millions d'euros sur un compte offshore au Luxembourg.`

// mockDelegate scripts Complete responses for fallback testing. It is
// safe for concurrent use because builder workers share one instance.
type mockDelegate struct {
	response string
	err      error

	mu    sync.Mutex
	calls int
}

func (m *mockDelegate) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockDelegate) GetModel() string { return "mock-model" }

func testDoc() types.Document {
	return types.Document{ID: "doc-1", Name: "pv.txt", Content: sampleDoc}
}

func TestDensityAgentExtractsDatedEvents(t *testing.T) {
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(res.Events) == 0 {
		t.Fatal("density agent found no events")
	}
	for _, e := range res.Events {
		if e.Date.IsZero() {
			t.Error("event with zero date survived extraction")
		}
		if e.Agent != types.AgentPatternDensity {
			t.Errorf("event agent = %s, want %s", e.Agent, types.AgentPatternDensity)
		}
		if e.Origin != types.OriginAgent {
			t.Errorf("event origin = %s, want %s", e.Origin, types.OriginAgent)
		}
		if e.Confidence < 0.7 || e.Confidence > 1.0 {
			t.Errorf("heuristic confidence = %v, want within [0.7, 1.0]", e.Confidence)
		}
		if err := e.Validate(); err != nil {
			t.Errorf("extracted event invalid: %v", err)
		}
	}
}

func TestLegalContextAgentFlagsPatterns(t *testing.T) {
	agent, err := NewAgent(types.AgentLegalContext, NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	foundSpecific := false
	for _, e := range res.Events {
		if e.Metadata["pattern_type"] == "legal_specific" {
			foundSpecific = true
			if e.Confidence != 0.9 {
				t.Errorf("legal pattern confidence = %v, want 0.9", e.Confidence)
			}
		}
	}
	if !foundSpecific {
		t.Error("legal context agent matched no procedural patterns")
	}
}

func TestStructuredAgentReadsSections(t *testing.T) {
	agent, err := NewAgent(types.AgentStructured, NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(res.Events) == 0 {
		t.Fatal("structured agent found no events")
	}
	for _, e := range res.Events {
		if _, ok := e.Metadata["structure_type"]; !ok {
			t.Errorf("structured event missing structure_type: %v", e.Metadata)
		}
	}
}

func TestVerificationAgentBoostsVerifiableEvents(t *testing.T) {
	agent, err := NewAgent(types.AgentVerification, NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	boosted := false
	for _, e := range res.Events {
		if _, ok := e.Metadata["legal_references"]; ok {
			boosted = true
			if e.Confidence > 0.95 {
				t.Errorf("boosted confidence = %v, exceeds 0.95", e.Confidence)
			}
		}
	}
	if !boosted {
		t.Error("verification agent flagged no article references")
	}
}

func TestDelegateFallbackOnError(t *testing.T) {
	delegate := &mockDelegate{err: errors.New("connection refused")}
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), delegate, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error despite fallback: %v", err)
	}
	if delegate.calls == 0 {
		t.Fatal("delegate was never tried")
	}
	if !res.DelegateFailed {
		t.Error("DelegateFailed not set after fallback")
	}
	if len(res.Events) == 0 {
		t.Fatal("fallback produced no events")
	}
	for _, e := range res.Events {
		reason, ok := e.Metadata["extraction_error"].(string)
		if !ok || reason == "" {
			t.Errorf("fallback event missing extraction_error: %v", e.Metadata)
		}
	}
}

// hangingDelegate blocks until its context dies, imitating a delegate
// endpoint that never answers.
type hangingDelegate struct {
	mu    sync.Mutex
	calls int
}

func (d *hangingDelegate) Complete(ctx context.Context, prompt string) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (d *hangingDelegate) GetModel() string { return "mock-model" }

func TestDelegateFallbackOnTimeout(t *testing.T) {
	delegate := &hangingDelegate{}
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), delegate, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	// The unit deadline plays the builder's per-unit timeout; the delegate
	// only gets a slice of it, leaving room for the heuristic pass.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := agent.Extract(ctx, testDoc())
	if err != nil {
		t.Fatalf("Extract returned error instead of falling back: %v", err)
	}
	if delegate.calls == 0 {
		t.Fatal("delegate was never tried")
	}
	if !res.DelegateFailed {
		t.Error("DelegateFailed not set after timeout fallback")
	}
	if len(res.Events) == 0 {
		t.Fatal("timeout fallback produced no events")
	}
	for _, e := range res.Events {
		reason, ok := e.Metadata["extraction_error"].(string)
		if !ok || reason == "" {
			t.Errorf("fallback event missing extraction_error: %v", e.Metadata)
		}
	}
}

func TestDelegateCancelledBuildStopsUnit(t *testing.T) {
	delegate := &hangingDelegate{}
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), delegate, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// A dead build context is not a delegate failure; the unit must stop
	// rather than burn time on a heuristic pass nobody will read.
	if _, err := agent.Extract(ctx, testDoc()); err == nil {
		t.Error("extraction survived build cancellation")
	}
}

func TestDelegateRecordsValidated(t *testing.T) {
	// One good record, one with an unresolvable date that must be skipped.
	delegate := &mockDelegate{response: `[
		{"date": "15/03/2024", "description": "Perquisition au siège de la société Alpha", "importance": 7, "category": "investigation", "actors": ["M. Dupont"], "confidence": 0.9},
		{"date": "pas une date", "description": "Entrée invalide", "importance": 5, "category": "other", "confidence": 0.5}
	]`}
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), delegate, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}

	res, err := agent.Extract(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.DelegateFailed {
		t.Error("DelegateFailed set on a successful delegate run")
	}
	if res.DatesRejected == 0 {
		t.Error("unresolvable delegate date not counted")
	}
	for _, e := range res.Events {
		if e.Metadata["delegate_model"] != "mock-model" {
			t.Errorf("delegate_model = %v", e.Metadata["delegate_model"])
		}
		if e.Description != "Perquisition au siège de la société Alpha" {
			t.Errorf("unexpected event from delegate: %q", e.Description)
		}
	}
	if len(res.Events) == 0 {
		t.Fatal("valid delegate record was dropped")
	}
}

func TestAgentCancellation(t *testing.T) {
	agent, err := NewAgent(types.AgentPatternDensity, NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := agent.Extract(ctx, testDoc()); err == nil {
		t.Error("cancelled extraction returned no error")
	}
}

func TestUnknownAgentKind(t *testing.T) {
	if _, err := NewAgent(types.AgentKind("oracle"), NewDateResolver(), nil, types.ViewSpec{Kind: types.ViewComplete}); err == nil {
		t.Error("unknown agent kind accepted")
	}
}

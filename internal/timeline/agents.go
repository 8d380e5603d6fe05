package timeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/chronolex/internal/llm"
	"github.com/scrypster/chronolex/pkg/types"
)

// Context window bounds around a date hit, in bytes. The window before the
// hit is shorter because French legal prose states the act after the date.
const (
	windowBefore = 150
	windowAfter  = 250

	// legal-context patterns read a wider window
	legalWindowBefore = 200
	legalWindowAfter  = 300

	// sections shorter than this carry no extractable event
	minSectionLen = 50

	// delegate calls stop after this many excerpt chunks per document
	maxDelegateChunks = 3
)

// Result is the output of one (document, agent) extraction unit.
type Result struct {
	// Events are the validated, date-resolved events
	Events []types.Event

	// DatesRejected counts candidate events dropped for unresolvable dates
	DatesRejected int

	// DelegateFailed is set when the reasoning delegate errored and the
	// heuristic fallback produced the events
	DelegateFailed bool
}

// Agent extracts dated events from a single document.
type Agent interface {
	// Kind identifies the extraction strategy
	Kind() types.AgentKind

	// Extract runs the strategy over the document. The returned error is
	// reserved for context cancellation; extraction problems degrade to
	// fewer events, never to an error.
	Extract(ctx context.Context, doc types.Document) (Result, error)
}

// NewAgent builds the agent for a strategy. delegate may be nil, in which
// case the agent runs its local heuristics only. view specializes the
// delegate prompt; heuristic passes ignore it because filtering happens
// downstream.
func NewAgent(kind types.AgentKind, resolver *DateResolver, delegate llm.TextGenerator, view types.ViewSpec) (Agent, error) {
	base := baseAgent{kind: kind, resolver: resolver, delegate: delegate, view: view}
	switch kind {
	case types.AgentPatternDensity:
		return &densityAgent{base}, nil
	case types.AgentLegalContext:
		return &legalContextAgent{base}, nil
	case types.AgentStructured:
		return &structuredAgent{base}, nil
	case types.AgentVerification:
		return &verificationAgent{base}, nil
	default:
		return nil, fmt.Errorf("unknown agent kind %q", kind)
	}
}

type baseAgent struct {
	kind     types.AgentKind
	resolver *DateResolver
	delegate llm.TextGenerator
	view     types.ViewSpec
}

func (a *baseAgent) Kind() types.AgentKind { return a.kind }

// newEvent assembles an event with the shared bookkeeping fields set.
func (a *baseAgent) newEvent(doc types.Document, date string, window string) (types.Event, error) {
	resolved, err := a.resolver.Resolve(date)
	if err != nil {
		return types.Event{}, err
	}
	importance := scoreImportance(window)
	return types.Event{
		ID:          uuid.New().String(),
		Date:        resolved,
		Description: cleanDescription(window),
		Importance:  importance,
		Category:    classify(window),
		Actors:      extractActors(window),
		Source:      doc.Name,
		Confidence:  0.7 + 0.3*float64(importance)/10,
		Origin:      types.OriginAgent,
		Agent:       a.kind,
		Metadata:    map[string]any{},
	}, nil
}

// extractDensity is the shared heuristic core: locate every date
// expression, score the surrounding window, and keep candidates whose
// dates resolve.
func (a *baseAgent) extractDensity(ctx context.Context, doc types.Document) (Result, error) {
	var res Result
	for _, match := range a.resolver.Scan(doc.Content) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := match.Start - windowBefore
		if start < 0 {
			start = 0
		}
		end := match.End + windowAfter
		if end > len(doc.Content) {
			end = len(doc.Content)
		}
		window := doc.Content[start:end]

		event, err := a.newEvent(doc, match.Text, window)
		if err != nil {
			res.DatesRejected++
			continue
		}
		event.Metadata["date_kind"] = string(match.Kind)
		res.Events = append(res.Events, event)
	}
	return res, nil
}

// extractWithDelegate asks the reasoning delegate for events over excerpt
// chunks of the document. Every returned date still goes through the
// resolver; records that fail validation are skipped individually.
func (a *baseAgent) extractWithDelegate(ctx context.Context, doc types.Document) (Result, error) {
	var res Result
	chunker := llm.NewChunker(0, 0)
	chunks := chunker.Chunk(doc.Content)
	if len(chunks) > maxDelegateChunks {
		chunks = chunks[:maxDelegateChunks]
	}

	for _, chunk := range chunks {
		prompt := llm.BuildExtractionPrompt(a.view, chunk)
		raw, err := a.delegate.Complete(ctx, prompt)
		if err != nil {
			return Result{}, fmt.Errorf("delegate completion: %w", err)
		}
		records, err := llm.ParseEventRecords(raw)
		if err != nil {
			return Result{}, fmt.Errorf("delegate response: %w", err)
		}
		for _, rec := range records {
			event, err := a.recordToEvent(doc, rec)
			if err != nil {
				res.DatesRejected++
				log.Printf("[agent:%s] skipping delegate record: %v", a.kind, err)
				continue
			}
			res.Events = append(res.Events, event)
		}
	}
	return res, nil
}

func (a *baseAgent) recordToEvent(doc types.Document, rec llm.EventRecord) (types.Event, error) {
	resolved, err := a.resolver.Resolve(rec.Date)
	if err != nil {
		return types.Event{}, fmt.Errorf("date %q: %w", rec.Date, err)
	}
	importance := rec.Importance
	if importance < 1 || importance > 10 {
		importance = scoreImportance(rec.Description)
	}
	category := types.Category(rec.Category)
	if !types.IsValidCategory(category) {
		category = classify(rec.Description)
	}
	confidence := rec.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.7 + 0.3*float64(importance)/10
	}
	actors := rec.Actors
	if len(actors) > 5 {
		actors = actors[:5]
	}
	return types.Event{
		ID:          uuid.New().String(),
		Date:        resolved,
		Description: cleanDescription(rec.Description),
		Importance:  importance,
		Category:    category,
		Actors:      actors,
		Source:      doc.Name,
		Confidence:  confidence,
		Origin:      types.OriginAgent,
		Agent:       a.kind,
		Metadata:    map[string]any{"delegate_model": a.delegate.GetModel()},
	}, nil
}

// delegateBudget is the share of the remaining unit deadline the delegate
// may spend. The rest is reserved for the heuristic fallback, so a
// delegate that hangs until its sub-deadline still leaves the unit enough
// time to produce events locally.
const delegateBudget = 0.8

// delegateContext derives the delegate's sub-deadline from ctx. Without a
// deadline the delegate inherits ctx unchanged.
func delegateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(float64(time.Until(deadline))*delegateBudget))
}

// runWithFallback prefers the delegate and falls back to the supplied
// heuristic pass when it fails, including when the delegate dies by
// timeout. Only a dead unit context stops the unit; fallback events record
// the failure reason so downstream consumers can see the degradation.
func (a *baseAgent) runWithFallback(ctx context.Context, doc types.Document, heuristic func(context.Context, types.Document) (Result, error)) (Result, error) {
	if a.delegate == nil {
		return heuristic(ctx, doc)
	}

	delegateCtx, cancel := delegateContext(ctx)
	res, err := a.extractWithDelegate(delegateCtx, doc)
	cancel()
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	log.Printf("[agent:%s] delegate failed, using heuristic fallback: %v", a.kind, err)
	res, herr := heuristic(ctx, doc)
	if herr != nil {
		return Result{}, herr
	}
	res.DelegateFailed = true
	for i := range res.Events {
		res.Events[i].Metadata["extraction_error"] = err.Error()
	}
	return res, nil
}

// densityAgent is the pattern-density strategy: date hits plus weighted
// keyword scoring of the surrounding window.
type densityAgent struct{ baseAgent }

func (a *densityAgent) Extract(ctx context.Context, doc types.Document) (Result, error) {
	return a.runWithFallback(ctx, doc, a.extractDensity)
}

// legalPatterns are high-signal procedural acts. Each carries its own
// category and importance, bypassing the keyword scorer.
var legalPatterns = []struct {
	re         *regexp.Regexp
	category   types.Category
	importance int
}{
	{regexp.MustCompile(`(?i)garde à vue.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryInvestigation, 9},
	{regexp.MustCompile(`(?i)perquisition.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryInvestigation, 8},
	{regexp.MustCompile(`(?i)audition.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryInvestigation, 7},
	{regexp.MustCompile(`(?i)mise en examen.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryInstruction, 10},
	{regexp.MustCompile(`(?i)ordonnance.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryInstruction, 8},
	{regexp.MustCompile(`(?i)abus de biens.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryFinancial, 9},
	{regexp.MustCompile(`(?i)corruption.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryFinancial, 10},
	{regexp.MustCompile(`(?i)blanchiment.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryFinancial, 10},
	{regexp.MustCompile(`(?i)contrôle judiciaire.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryCoercive, 8},
	{regexp.MustCompile(`(?i)gel des avoirs.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), types.CategoryCoercive, 9},
}

// legalContextAgent runs the density pass plus a dedicated sweep for
// high-signal procedural patterns, then deduplicates the union.
type legalContextAgent struct{ baseAgent }

func (a *legalContextAgent) Extract(ctx context.Context, doc types.Document) (Result, error) {
	return a.runWithFallback(ctx, doc, a.extractLegalContext)
}

func (a *legalContextAgent) extractLegalContext(ctx context.Context, doc types.Document) (Result, error) {
	res, err := a.extractDensity(ctx, doc)
	if err != nil {
		return res, err
	}

	for _, lp := range legalPatterns {
		for _, loc := range lp.re.FindAllStringSubmatchIndex(doc.Content, -1) {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			dateStr := doc.Content[loc[2]:loc[3]]
			resolved, err := a.resolver.Resolve(dateStr)
			if err != nil {
				res.DatesRejected++
				continue
			}
			start := loc[0] - legalWindowBefore
			if start < 0 {
				start = 0
			}
			end := loc[1] + legalWindowAfter
			if end > len(doc.Content) {
				end = len(doc.Content)
			}
			window := doc.Content[start:end]

			event := types.Event{
				ID:          uuid.New().String(),
				Date:        resolved,
				Description: cleanDescription(window),
				Importance:  lp.importance,
				Category:    lp.category,
				Actors:      extractActors(window),
				Source:      doc.Name,
				Confidence:  0.9,
				Origin:      types.OriginAgent,
				Agent:       a.kind,
				Metadata: map[string]any{
					"pattern_type": "legal_specific",
				},
			}
			if infraction := detectInfraction(window); infraction != "" {
				event.Metadata["infraction_type"] = infraction
			}
			res.Events = append(res.Events, event)
		}
	}

	res.Events = NewDeduplicator().Deduplicate(res.Events)
	return res, nil
}

var (
	reDatedList    = regexp.MustCompile(`(?m)(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\s*:\s*(.*?)(?:\.|;|$)`)
	reLegalArticle = regexp.MustCompile(`(?i)article \d+.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
)

// structuredAgent splits the document on blank lines and reads dated-list
// entries and article references inside each section.
type structuredAgent struct{ baseAgent }

func (a *structuredAgent) Extract(ctx context.Context, doc types.Document) (Result, error) {
	return a.runWithFallback(ctx, doc, a.extractStructured)
}

func (a *structuredAgent) extractStructured(ctx context.Context, doc types.Document) (Result, error) {
	var res Result
	for _, section := range strings.Split(doc.Content, "\n\n") {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(section) < minSectionLen {
			continue
		}
		for _, pat := range []struct {
			re            *regexp.Regexp
			structureType string
			importance    int
		}{
			{reDatedList, "dated_list", 5},
			{reLegalArticle, "legal_article", 7},
		} {
			for _, m := range pat.re.FindAllStringSubmatch(section, -1) {
				resolved, err := a.resolver.Resolve(m[1])
				if err != nil {
					res.DatesRejected++
					continue
				}
				res.Events = append(res.Events, types.Event{
					ID:          uuid.New().String(),
					Date:        resolved,
					Description: cleanDescription(truncateRunes(section, 200)),
					Importance:  pat.importance,
					Category:    classify(section),
					Actors:      extractActors(section),
					Source:      doc.Name,
					Confidence:  0.7 + 0.3*float64(pat.importance)/10,
					Origin:      types.OriginAgent,
					Agent:       a.kind,
					Metadata:    map[string]any{"structure_type": pat.structureType},
				})
			}
		}
	}
	return res, nil
}

// verificationAgent re-runs the density pass and boosts events backed by
// verifiable elements: article references raise confidence, monetary
// amounts raise importance.
type verificationAgent struct{ baseAgent }

func (a *verificationAgent) Extract(ctx context.Context, doc types.Document) (Result, error) {
	return a.runWithFallback(ctx, doc, a.extractVerification)
}

func (a *verificationAgent) extractVerification(ctx context.Context, doc types.Document) (Result, error) {
	res, err := a.extractDensity(ctx, doc)
	if err != nil {
		return res, err
	}
	for i := range res.Events {
		e := &res.Events[i]
		if refs := reArticleRef.FindAllString(e.Description, -1); len(refs) > 0 {
			e.Metadata["legal_references"] = refs
			e.Confidence = min95(e.Confidence + 0.1)
		}
		if amounts := reAmount.FindAllString(e.Description, -1); len(amounts) > 0 {
			e.Metadata["amounts"] = amounts
			if e.Importance < 10 {
				e.Importance++
			}
		}
	}
	return res, nil
}

func min95(v float64) float64 {
	if v > 0.95 {
		return 0.95
	}
	return v
}

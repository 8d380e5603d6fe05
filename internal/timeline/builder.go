package timeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/scrypster/chronolex/internal/llm"
	"github.com/scrypster/chronolex/pkg/types"
)

// ErrEmptyInput is returned when a build request carries no documents and
// no manual events. It is the only error a build surfaces: every other
// problem degrades to fewer events.
var ErrEmptyInput = errors.New("no documents or manual events to build from")

// Stage identifies where a build currently is in the pipeline.
type Stage string

const (
	StageCollecting    Stage = "collecting_documents"
	StageExtracting    Stage = "extracting"
	StageFiltering     Stage = "filtering"
	StageDeduplicating Stage = "deduplicating"
	StageFusing        Stage = "fusing"
	StageEnriching     Stage = "enriching"
	StageDone          Stage = "done"

	// StageFailed is terminal: the build surfaced an error instead of a
	// timeline
	StageFailed Stage = "failed"
)

// StageCallback receives build progress notifications. Callbacks run on
// the build goroutine and must not block.
type StageCallback func(buildID string, stage Stage)

// Config tunes the builder.
type Config struct {
	// NumWorkers bounds concurrent (document, agent) extraction units
	NumWorkers int

	// UnitTimeout caps a single extraction unit
	UnitTimeout time.Duration

	// DelegateRPS throttles reasoning-delegate calls across all workers
	// (0 disables throttling)
	DelegateRPS float64

	// CacheSize is the number of completed builds kept in the LRU cache
	// (0 disables caching)
	CacheSize int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:  4,
		UnitTimeout: 30 * time.Second,
		DelegateRPS: 2,
		CacheSize:   32,
	}
}

// Validate checks configuration limits.
func (c Config) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be at least 1, got %d", c.NumWorkers)
	}
	if c.UnitTimeout <= 0 {
		return fmt.Errorf("unit_timeout must be positive, got %v", c.UnitTimeout)
	}
	if c.DelegateRPS < 0 {
		return fmt.Errorf("delegate_rps must not be negative, got %v", c.DelegateRPS)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// BuildRequest describes one timeline build.
type BuildRequest struct {
	// Documents are the source texts
	Documents []types.Document `json:"documents"`

	// View selects and parameterizes the timeline view
	View types.ViewSpec `json:"view"`

	// Agents lists the strategies to run; empty means all of them
	Agents []types.AgentKind `json:"agents,omitempty"`

	// Fusion merges multi-agent results into consensus events; without it
	// the pooled events keep their per-agent confidence
	Fusion bool `json:"fusion"`

	// ManualEvents are operator-entered events that bypass extraction and
	// join the pipeline at deduplication
	ManualEvents []types.Event `json:"manual_events,omitempty"`

	// Title names the timeline when it is saved
	Title string `json:"title,omitempty"`
}

// Builder orchestrates the extraction pipeline: agents fan out over
// documents through a bounded worker pool, results pass through filter,
// dedup, fusion and enrichment, and completed builds land in an LRU cache
// keyed by request fingerprint.
type Builder struct {
	cfg      Config
	resolver *DateResolver
	delegate llm.TextGenerator
	limiter  *rate.Limiter
	cache    *lru.Cache[string, *types.Timeline]

	mu      sync.Mutex
	onStage StageCallback
}

// NewBuilder constructs a builder. delegate may be nil to run heuristics
// only.
func NewBuilder(cfg Config, resolver *DateResolver, delegate llm.TextGenerator) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid builder config: %w", err)
	}
	b := &Builder{
		cfg:      cfg,
		resolver: resolver,
		delegate: delegate,
	}
	if cfg.DelegateRPS > 0 && delegate != nil {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.DelegateRPS), 1)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *types.Timeline](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		b.cache = cache
	}
	return b, nil
}

// SetStageCallback registers a progress listener.
func (b *Builder) SetStageCallback(fn StageCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStage = fn
}

func (b *Builder) notify(buildID string, stage Stage) {
	b.mu.Lock()
	fn := b.onStage
	b.mu.Unlock()
	if fn != nil {
		fn(buildID, stage)
	}
}

// extractionUnit is one (document, agent) pairing processed by a worker.
type extractionUnit struct {
	doc   types.Document
	agent Agent
}

// Build runs the full pipeline. Cancelling ctx stops scheduling new
// extraction units but keeps everything already completed, so a cancelled
// build still yields a partial timeline.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*types.Timeline, error) {
	buildID := uuid.New().String()

	b.notify(buildID, StageCollecting)
	if len(req.Documents) == 0 && len(req.ManualEvents) == 0 {
		b.notify(buildID, StageFailed)
		return nil, ErrEmptyInput
	}
	if err := req.View.Validate(); err != nil {
		b.notify(buildID, StageFailed)
		return nil, fmt.Errorf("invalid view: %w", err)
	}
	agentKinds := req.Agents
	if len(agentKinds) == 0 {
		agentKinds = types.AllAgentKinds
	}

	fingerprint := b.fingerprint(req, agentKinds)
	if b.cache != nil {
		if cached, ok := b.cache.Get(fingerprint); ok {
			log.Printf("[builder] cache hit for build fingerprint %s", fingerprint[:12])
			b.notify(buildID, StageDone)
			return cached, nil
		}
	}

	started := time.Now()
	stats := types.BuildStats{
		Documents: len(req.Documents),
		Agents:    len(agentKinds),
	}

	agents := make([]Agent, 0, len(agentKinds))
	for _, kind := range agentKinds {
		agent, err := NewAgent(kind, b.resolver, b.delegate, req.View)
		if err != nil {
			b.notify(buildID, StageFailed)
			return nil, fmt.Errorf("building agent: %w", err)
		}
		agents = append(agents, agent)
	}

	b.notify(buildID, StageExtracting)
	perAgent, failedAgents := b.runExtraction(ctx, req.Documents, agents, &stats)
	stats.AgentsFailed = len(failedAgents)
	for _, events := range perAgent {
		stats.Extracted += len(events)
	}

	b.notify(buildID, StageFiltering)
	filter := NewTypeFilter(req.View)
	for kind, events := range perAgent {
		perAgent[kind] = filter.Apply(events)
		stats.Filtered += len(perAgent[kind])
	}

	b.notify(buildID, StageDeduplicating)
	dedup := NewDeduplicator()
	for kind, events := range perAgent {
		perAgent[kind] = dedup.Deduplicate(events)
		stats.Deduplicated += len(perAgent[kind])
	}

	b.notify(buildID, StageFusing)
	var events []types.Event
	if req.Fusion {
		events = NewFusionEngine().Fuse(perAgent)
	} else {
		for _, kind := range types.AllAgentKinds {
			events = append(events, perAgent[kind]...)
		}
		events = dedup.Deduplicate(events)
	}
	if manual := b.manualEvents(req, filter); len(manual) > 0 {
		events = dedup.Deduplicate(append(events, manual...))
	}
	SortEvents(events)
	stats.Fused = len(events)

	b.notify(buildID, StageEnriching)
	NewEnrichmentPass().Enrich(events)

	stats.Duration = time.Since(started)
	timeline := &types.Timeline{
		ID:        buildID,
		Title:     req.Title,
		View:      req.View,
		Events:    events,
		CreatedAt: time.Now().UTC(),
		Stats:     stats,
	}

	b.notify(buildID, StageDone)
	log.Printf("[builder] build %s done: %d events from %d documents in %v (rejected dates: %d)",
		buildID, len(events), stats.Documents, stats.Duration.Round(time.Millisecond), stats.DatesRejected)

	// Partial builds stay out of the cache so a retry can complete them.
	if b.cache != nil && ctx.Err() == nil {
		b.cache.Add(fingerprint, timeline)
	}
	return timeline, nil
}

// runExtraction fans (document, agent) units out over the worker pool and
// accumulates per-agent results. A cancelled context drains the queue
// without starting new units; completed units are kept.
func (b *Builder) runExtraction(ctx context.Context, docs []types.Document, agents []Agent, stats *types.BuildStats) (map[types.AgentKind][]types.Event, map[types.AgentKind]bool) {
	units := make(chan extractionUnit)
	perAgent := make(map[types.AgentKind][]types.Event)
	failed := make(map[types.AgentKind]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := b.cfg.NumWorkers
	if total := len(docs) * len(agents); total < workers {
		workers = total
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for unit := range units {
				if ctx.Err() != nil {
					mu.Lock()
					stats.UnitsDropped++
					mu.Unlock()
					continue
				}
				b.runUnit(ctx, unit, perAgent, failed, stats, &mu)
			}
		}(w)
	}

	for _, agent := range agents {
		for _, doc := range docs {
			units <- extractionUnit{doc: doc, agent: agent}
		}
	}
	close(units)
	wg.Wait()

	return perAgent, failed
}

func (b *Builder) runUnit(ctx context.Context, unit extractionUnit, perAgent map[types.AgentKind][]types.Event, failed map[types.AgentKind]bool, stats *types.BuildStats, mu *sync.Mutex) {
	unitCtx, cancel := context.WithTimeout(ctx, b.cfg.UnitTimeout)
	defer cancel()

	if b.limiter != nil {
		if err := b.limiter.Wait(unitCtx); err != nil {
			mu.Lock()
			stats.UnitsDropped++
			mu.Unlock()
			return
		}
	}

	res, err := unit.agent.Extract(unitCtx, unit.doc)
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		log.Printf("[builder] unit (%s, %s) abandoned: %v", unit.doc.Name, unit.agent.Kind(), err)
		stats.UnitsDropped++
		return
	}
	stats.UnitsCompleted++
	stats.DatesRejected += res.DatesRejected
	if res.DelegateFailed {
		failed[unit.agent.Kind()] = true
	}
	perAgent[unit.agent.Kind()] = append(perAgent[unit.agent.Kind()], res.Events...)
}

// manualEvents validates operator-entered events and runs them through
// the view filter so a procedure view never shows an off-view manual
// entry. Invalid entries are logged and skipped.
func (b *Builder) manualEvents(req BuildRequest, filter *TypeFilter) []types.Event {
	var valid []types.Event
	for _, e := range req.ManualEvents {
		e.Origin = types.OriginManual
		e.Agent = ""
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Confidence == 0 {
			e.Confidence = 1.0
		}
		if err := e.Validate(); err != nil {
			log.Printf("[builder] skipping manual event: %v", err)
			continue
		}
		valid = append(valid, e)
	}
	return filter.Apply(valid)
}

// fingerprint derives the cache key from everything that affects build
// output. Document content is hashed, so editing a document invalidates
// its cached builds.
func (b *Builder) fingerprint(req BuildRequest, agentKinds []types.AgentKind) string {
	h := sha256.New()
	for _, doc := range req.Documents {
		fmt.Fprintf(h, "doc:%s:%x\n", doc.ID, sha256.Sum256([]byte(doc.Content)))
	}
	fmt.Fprintf(h, "view:%s:%s:%t:%s\n", req.View.Kind, req.View.TargetFact, req.View.IncludeRelated, req.View.ActType)

	kinds := make([]string, len(agentKinds))
	for i, k := range agentKinds {
		kinds[i] = string(k)
	}
	sort.Strings(kinds)
	fmt.Fprintf(h, "agents:%s\n", strings.Join(kinds, ","))
	fmt.Fprintf(h, "fusion:%t\n", req.Fusion)
	for _, e := range req.ManualEvents {
		fmt.Fprintf(h, "manual:%s\n", e.IdentityKey())
	}
	if b.delegate != nil {
		fmt.Fprintf(h, "delegate:%s\n", b.delegate.GetModel())
	}
	return hex.EncodeToString(h.Sum(nil))
}

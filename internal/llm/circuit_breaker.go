package llm

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the delegate breaker is open and rejects
// requests. Agents treat it like any delegate failure and fall back to
// their heuristic pass.
var ErrCircuitOpen = errors.New("delegate circuit breaker is open")

// BreakerConfig tunes the delegate circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that trips the circuit
	MaxFailures uint32

	// Timeout is how long the circuit stays open before half-open probes
	Timeout time.Duration

	// HalfOpenMaxSuccesses closes the circuit after this many half-open
	// successes
	HalfOpenMaxSuccesses uint32
}

// BreakerMetrics is a snapshot of breaker activity.
type BreakerMetrics struct {
	TotalRequests        uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker wraps gobreaker around delegate HTTP calls so a dead provider
// fails fast instead of stalling every extraction unit on its timeout.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	mu      sync.Mutex
	metrics BreakerMetrics
}

// NewBreaker returns a breaker with production defaults: trip after 3
// consecutive failures, stay open 30 seconds, close after 2 half-open
// successes.
func NewBreaker() *Breaker {
	return NewBreakerWithConfig(BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	})
}

// NewBreakerWithConfig returns a breaker with custom thresholds.
func NewBreakerWithConfig(cfg BreakerConfig) *Breaker {
	b := &Breaker{}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "delegate",
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[llm] circuit %s: %s -> %s", name, from, to)
		},
	})
	return b
}

// Execute runs fn through the breaker. An open circuit returns
// ErrCircuitOpen without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		b.record(false)
		return nil, err
	}

	result, err := b.breaker.Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if err != nil {
		b.record(false)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	b.record(true)
	return result, nil
}

// State reports "closed", "open" or "half-open".
func (b *Breaker) State() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Metrics returns a consistent snapshot of breaker counters.
func (b *Breaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := b.breaker.Counts()
	m := b.metrics
	m.ConsecutiveSuccesses = counts.ConsecutiveSuccesses
	m.ConsecutiveFailures = counts.ConsecutiveFailures
	return m
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics.TotalRequests++
	if success {
		b.metrics.TotalSuccesses++
	} else {
		b.metrics.TotalFailures++
	}
}

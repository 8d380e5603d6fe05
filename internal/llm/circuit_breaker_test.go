package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errProvider = errors.New("provider unavailable")

func failingCall() (any, error)    { return nil, errProvider }
func succeedingCall() (any, error) { return "ok", nil }

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker()
	for i := 0; i < 10; i++ {
		result, err := b.Execute(context.Background(), succeedingCall)
		if err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		if result != "ok" {
			t.Fatalf("result = %v", result)
		}
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
	m := b.Metrics()
	if m.TotalRequests != 10 || m.TotalSuccesses != 10 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreakerWithConfig(BreakerConfig{
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	})

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(context.Background(), failingCall); !errors.Is(err, errProvider) {
			t.Fatalf("call %d error = %v, want provider error", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("state after trip = %s, want open", b.State())
	}

	// The open circuit must reject without invoking the call.
	invoked := false
	_, err := b.Execute(context.Background(), func() (any, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open-circuit error = %v, want ErrCircuitOpen", err)
	}
	if invoked {
		t.Error("open circuit still invoked the call")
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreakerWithConfig(BreakerConfig{
		MaxFailures:          1,
		Timeout:              20 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})

	if _, err := b.Execute(context.Background(), failingCall); !errors.Is(err, errProvider) {
		t.Fatalf("error = %v", err)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := b.Execute(context.Background(), succeedingCall); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("state after recovery = %s, want closed", b.State())
	}
}

func TestBreakerRespectsContext(t *testing.T) {
	b := NewBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Execute(ctx, succeedingCall); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

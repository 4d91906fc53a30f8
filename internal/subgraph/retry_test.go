package subgraph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestRetryPolicy_Schedule(t *testing.T) {
	b := DefaultRetryPolicy().backOff(context.Background())
	want := []time.Duration{500 * time.Millisecond, time.Second, backoff.Stop}

	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("step %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestRetryPolicy_DoWaitsExponentially(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Millisecond, Multiplier: 2}

	var waits []time.Duration
	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		return fmt.Errorf("%w: boom", ErrTransient)
	}, func(_ error, wait time.Duration) {
		waits = append(waits, wait)
	})

	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(waits) != 2 || waits[0] != 2*time.Millisecond || waits[1] != 4*time.Millisecond {
		t.Errorf("unexpected waits: %v", waits)
	}
}

func TestRetryPolicy_PermanentStopsImmediately(t *testing.T) {
	permanent := errors.New("bad query")
	attempts := 0
	err := DefaultRetryPolicy().Do(context.Background(), func() error {
		attempts++
		return permanent
	}, nil)

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2}
	err := p.Do(ctx, func() error {
		return fmt.Errorf("%w: boom", ErrTransient)
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

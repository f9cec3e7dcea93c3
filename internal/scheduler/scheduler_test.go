// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// countingCycler records cycle invocations and can cancel the run after a
// target count.
type countingCycler struct {
	mu     sync.Mutex
	count  int
	target int
	cancel context.CancelFunc
}

func (c *countingCycler) Cycle(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.cancel != nil && c.count >= c.target {
		c.cancel()
	}
}

func (c *countingCycler) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestServeRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cycler := &countingCycler{target: 1, cancel: cancel}

	s := New(time.Hour, cycler, zerolog.Nop())
	if err := s.Serve(ctx); err != context.Canceled {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if cycler.calls() != 1 {
		t.Errorf("cycles = %d, want exactly the immediate one", cycler.calls())
	}
}

func TestServeTicksOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cycler := &countingCycler{target: 3, cancel: cancel}

	s := New(5*time.Millisecond, cycler, zerolog.Nop())
	// Tight poll so the test completes quickly.
	s.sleep = func(ctx context.Context, d time.Duration) {
		if d > time.Millisecond {
			d = time.Millisecond
		}
		sleepCtx(ctx, d)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("scheduler never reached three cycles")
	}
	if cycler.calls() < 3 {
		t.Errorf("cycles = %d, want at least 3", cycler.calls())
	}
}

func TestServeStopsBetweenTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cycler := &countingCycler{}

	s := New(time.Hour, cycler, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	// Let the immediate cycle run, then cancel mid-sleep.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop within poll granularity")
	}
	if cycler.calls() != 1 {
		t.Errorf("cycles = %d, want 1 before cancel", cycler.calls())
	}
}

func TestCyclesDoNotOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	inFlight, maxInFlight, runs := 0, 0, 0

	blocker := cyclerFunc(func(context.Context) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		runs++
		stop := runs >= 3
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		if stop {
			cancel()
		}
	})

	s := New(time.Millisecond, blocker, zerolog.Nop())
	_ = s.Serve(ctx)

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", maxInFlight)
	}
}

type cyclerFunc func(context.Context)

func (f cyclerFunc) Cycle(ctx context.Context) { f(ctx) }

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package scheduler drives the curation engine on a fixed interval. It runs
// as a service under the supervision tree: one cycle immediately on start,
// then one per interval. Cycles never overlap; a long cycle pushes the next
// tick out.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// pollGranularity bounds how long the loop sleeps between due-checks, so
// shutdown signals are honored promptly even with long intervals.
const pollGranularity = time.Second

// Cycler runs one curation cycle.
type Cycler interface {
	Cycle(ctx context.Context)
}

// Scheduler periodically invokes a Cycler. It implements suture.Service.
type Scheduler struct {
	interval time.Duration
	cycler   Cycler
	logger   zerolog.Logger

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Scheduler that runs a cycle every interval.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(interval time.Duration, cycler Cycler, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		cycler:   cycler,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Serve runs the schedule until the context is canceled. The first cycle
// starts immediately.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	next := s.now()
	for {
		if ctx.Err() != nil {
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		}
		if !s.now().Before(next) {
			s.cycler.Cycle(ctx)
			next = s.now().Add(s.interval)
		}

		wait := next.Sub(s.now())
		if wait > pollGranularity {
			wait = pollGranularity
		}
		if wait > 0 {
			s.sleep(ctx, wait)
		}
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "scheduler"
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package engine runs the curation cycle: gather candidates from subscribed
// hosts, score and rank them, then admit the best ones for boosting under
// the rate budget and diversity caps. One cycle executes at a time; the
// scheduler never overlaps them.
package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/feditrend/hype/internal/metrics"
	"github.com/feditrend/hype/internal/policy"
	"github.com/feditrend/hype/internal/scoring"
	"github.com/feditrend/hype/internal/state"
)

// Config holds the selection and admission settings.
type Config struct {
	// MaxBoostsPerRun caps admissions per cycle.
	MaxBoostsPerRun int

	// DailyCap and HourlyCap bound boosts per UTC day and hour. Zero means
	// unlimited.
	DailyCap  int
	HourlyCap int

	// Author diversity: at most MaxBoostsPerAuthorPerDay boosts per author
	// per UTC day when enforced.
	AuthorDiversityEnforced  bool
	MaxBoostsPerAuthorPerDay int

	// Hashtag diversity: at most MaxBoostsPerHashtagPerRun boosts per
	// hashtag per cycle when enforced.
	HashtagDiversityEnforced  bool
	MaxBoostsPerHashtagPerRun int

	// MinScoreThreshold drops candidates below this raw score before
	// ranking. Zero disables the gate.
	MinScoreThreshold float64

	// FilteredInstances lists host suffixes whose authors are never boosted.
	FilteredInstances []string

	// SourceBoostLimits caps admissions per origin per cycle (the
	// subscription's boost_limit, plus the local timeline's own limit under
	// the "@local" key). Zero means unlimited for that origin.
	SourceBoostLimits map[string]int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxBoostsPerRun:           5,
		DailyCap:                  48,
		HourlyCap:                 1,
		AuthorDiversityEnforced:   true,
		MaxBoostsPerAuthorPerDay:  1,
		HashtagDiversityEnforced:  true,
		MaxBoostsPerHashtagPerRun: 1,
	}
}

// Engine owns the per-cycle selection pipeline and the persistent state.
type Engine struct {
	cfg       Config
	store     *state.Store
	source    *Source
	filter    *policy.Filter
	scorer    *scoring.Scorer
	publisher *Publisher
	logger    zerolog.Logger
	trace     zerolog.Logger

	filteredHosts map[string]bool

	// hashtags boosted this run; reset at the top of every cycle.
	runTags   map[string]int
	perSource map[string]int

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates an Engine. trace receives per-candidate decision logs and may
// be a Nop logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, store *state.Store, source *Source, filter *policy.Filter,
	scorer *scoring.Scorer, publisher *Publisher, logger, trace zerolog.Logger,
) *Engine {
	filtered := make(map[string]bool, len(cfg.FilteredInstances))
	for _, h := range cfg.FilteredInstances {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			filtered[h] = true
		}
	}
	return &Engine{
		cfg:           cfg,
		store:         store,
		source:        source,
		filter:        filter,
		scorer:        scorer,
		publisher:     publisher,
		logger:        logger.With().Str("component", "engine").Logger(),
		trace:         trace,
		filteredHosts: filtered,
		now:           time.Now,
	}
}

// Cycle runs one complete curation pass. It never returns an error: every
// failure mode inside a cycle is logged and skipped so the next tick gets a
// clean start.
func (e *Engine) Cycle(ctx context.Context) {
	started := e.now()
	runID := uuid.NewString()
	log := e.logger.With().Str("run_id", runID).Logger()

	e.runTags = make(map[string]int)
	e.perSource = make(map[string]int)
	defer func() {
		metrics.CyclesTotal.Inc()
		metrics.CycleDuration.Observe(e.now().Sub(started).Seconds())
	}()

	if len(e.source.cfg.Subscriptions) == 0 && !e.source.cfg.LocalEnabled {
		log.Info().Msg("no candidate sources configured, nothing to do")
		return
	}

	e.store.Tick(started)
	if !e.store.Available(e.cfg.DailyCap, e.cfg.HourlyCap) {
		reason := e.capReason()
		log.Info().Str("reason", reason.String()).Msg("budget exhausted, skipping cycle")
		metrics.RecordSkip(reason.String())
		return
	}

	candidates := e.source.Gather(ctx, started)
	considered := len(candidates)
	metrics.CandidatesConsidered.Observe(float64(considered))
	if considered == 0 {
		log.Info().Msg("no candidates this cycle")
		return
	}

	trace := e.trace.With().Str("run_id", runID).Logger()
	candidates = e.scoreAndRank(candidates, started, trace)
	if len(candidates) == 0 {
		log.Info().Str("reason", policy.ReasonQualityBelowThreshold.String()).
			Int("considered", considered).
			Msg("all candidates below quality threshold")
		return
	}

	admitted := e.admit(ctx, candidates, log)

	day, hour := e.store.Counts()
	log.Info().
		Int("admitted", admitted).
		Int("considered", considered).
		Msgf("admitted %d, considered %d, day %d/%d, hour %d/%d",
			admitted, considered, day, e.cfg.DailyCap, hour, e.cfg.HourlyCap)
}

// scoreAndRank scores every candidate, applies the quality gate, normalizes
// to [0,100], and sorts best-first with newer posts winning ties.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) scoreAndRank(candidates []Candidate, now time.Time, trace zerolog.Logger) []Candidate {
	for i := range candidates {
		candidates[i].RawScore = e.scorer.Score(&candidates[i].Post, now)
		trace.Debug().
			Str("status", candidates[i].Post.ID).
			Str("origin", candidates[i].Origin).
			Float64("score", candidates[i].RawScore).
			Msg("scored")
	}

	if e.cfg.MinScoreThreshold > 0 {
		kept := candidates[:0]
		for i := range candidates {
			if candidates[i].RawScore >= e.cfg.MinScoreThreshold {
				kept = append(kept, candidates[i])
				continue
			}
			trace.Debug().Str("status", candidates[i].Post.ID).
				Float64("score", candidates[i].RawScore).
				Str("reason", policy.ReasonQualityBelowThreshold.String()).
				Msg("dropped")
			metrics.RecordSkip(policy.ReasonQualityBelowThreshold.String())
		}
		candidates = kept
		if len(candidates) == 0 {
			return nil
		}
	}

	raw := make([]float64, len(candidates))
	for i := range candidates {
		raw[i] = candidates[i].RawScore
	}
	for i, n := range scoring.Normalize(raw) {
		candidates[i].NormalizedScore = n
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].NormalizedScore != candidates[j].NormalizedScore {
			return candidates[i].NormalizedScore > candidates[j].NormalizedScore
		}
		return candidates[i].Post.CreatedAt.OrEpoch().
			After(candidates[j].Post.CreatedAt.OrEpoch())
	})
	return candidates
}

// admit walks the ranked candidates and publishes until the run cap or the
// budget stops it. Every skip logs its stable reason code.
//
//nolint:gocritic // zerolog.Logger is passed by value
func (e *Engine) admit(ctx context.Context, candidates []Candidate, log zerolog.Logger) int {
	admitted := 0
	for i := range candidates {
		if admitted >= e.cfg.MaxBoostsPerRun {
			log.Info().Str("reason", policy.ReasonRunCap.String()).Msg("run cap reached")
			break
		}
		e.store.Tick(e.now())
		if !e.store.Available(e.cfg.DailyCap, e.cfg.HourlyCap) {
			log.Info().Str("reason", e.capReason().String()).Msg("budget exhausted")
			break
		}

		c := &candidates[i]
		if reason, ok := e.eligible(c); !ok {
			e.skip(c, reason, log)
			continue
		}

		outcome := e.publisher.Publish(ctx, &c.Post)
		if !outcome.Published {
			e.skip(c, outcome.Reason, log)
			continue
		}

		e.commit(c, outcome, log)
		admitted++

		if e.cfg.HourlyCap > 0 {
			if _, hour := e.store.Counts(); hour >= e.cfg.HourlyCap {
				log.Info().Str("reason", policy.ReasonHourCap.String()).
					Msg("hourly cap reached mid-run")
				break
			}
		}
	}
	return admitted
}

// eligible applies the pre-publish checks in order: per-source cap, dedup,
// author and hashtag diversity, filtered hosts, then the content filter.
func (e *Engine) eligible(c *Candidate) (policy.Reason, bool) {
	if limit := e.cfg.SourceBoostLimits[c.Origin]; limit > 0 && e.perSource[c.Origin] >= limit {
		return policy.ReasonRunCap, false
	}
	if c.Post.Reblogged || e.store.Seen(c.Post.CacheKeys()...) {
		return policy.ReasonAlreadySeen, false
	}
	if e.cfg.AuthorDiversityEnforced &&
		e.store.AuthorBoostsToday(c.Post.AuthorHandle()) >= e.cfg.MaxBoostsPerAuthorPerDay {
		return policy.ReasonAuthorLimit, false
	}
	if e.cfg.HashtagDiversityEnforced {
		for _, tag := range c.Post.TagNames() {
			if e.runTags[tag] >= e.cfg.MaxBoostsPerHashtagPerRun {
				return policy.ReasonHashtagLimit, false
			}
		}
	}
	if domain := strings.ToLower(c.Post.AuthorDomain()); domain != "" && e.filteredHosts[domain] {
		return policy.ReasonFilteredHost, false
	}
	return e.filter.Check(&c.Post)
}

// commit records a successful boost: budget, seen cache (both the original
// and the federated copy), author and hashtag tallies, then persistence.
// A failed save is logged and retried implicitly by the next commit.
//
//nolint:gocritic // zerolog.Logger is passed by value
func (e *Engine) commit(c *Candidate, outcome Outcome, log zerolog.Logger) {
	e.store.Consume(e.cfg.DailyCap, e.cfg.HourlyCap)

	keys := c.Post.CacheKeys()
	keys = append(keys, c.Post.URI)
	if outcome.Post != nil {
		keys = append(keys, outcome.Post.ID, outcome.Post.URI)
	}
	e.store.MarkSeen(keys...)
	e.store.RecordAuthorBoost(c.Post.AuthorHandle())
	for _, tag := range c.Post.TagNames() {
		e.runTags[tag]++
	}
	e.perSource[c.Origin]++

	if err := e.store.Save(); err != nil {
		log.Error().Err(err).Msg("state save failed")
	}

	metrics.BoostsTotal.Inc()
	log.Info().
		Str("status", c.Post.ID).
		Str("origin", c.Origin).
		Str("author", c.Post.AuthorHandle()).
		Float64("score", c.RawScore).
		Msg("boosted")
}

//nolint:gocritic // zerolog.Logger is passed by value
func (e *Engine) skip(c *Candidate, reason policy.Reason, log zerolog.Logger) {
	log.Info().
		Str("status", c.Post.ID).
		Str("origin", c.Origin).
		Str("reason", reason.String()).
		Msg("skipped")
	metrics.RecordSkip(reason.String())
}

// capReason distinguishes which budget window is exhausted.
func (e *Engine) capReason() policy.Reason {
	if !e.store.Available(e.cfg.DailyCap, 0) {
		return policy.ReasonDayCap
	}
	return policy.ReasonHourCap
}

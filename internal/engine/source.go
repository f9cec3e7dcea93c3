// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/feditrend/hype/internal/mastodon"
	"github.com/feditrend/hype/internal/metrics"
)

// LocalOrigin is the sentinel origin name for candidates ingested from the
// publishing host's own local timeline.
const LocalOrigin = "@local"

// Candidate is a post under consideration in the current cycle, tagged with
// the host it was fetched from and its scores.
type Candidate struct {
	Post            mastodon.Status
	Origin          string
	RawScore        float64
	NormalizedScore float64
}

// Subscription is one remote host the bot ingests trending posts from.
type Subscription struct {
	Host       string
	FetchLimit int
	BoostLimit int
}

// TrendingClient fetches a host's trending statuses.
type TrendingClient interface {
	TrendingStatuses(ctx context.Context, limit int) ([]mastodon.Status, error)
}

// LocalTimelineClient fetches the publishing host's local public timeline.
type LocalTimelineClient interface {
	TimelineLocal(ctx context.Context, limit int) ([]mastodon.Status, error)
}

// ClientFunc resolves a host name to a trending client. The registry's
// ClientFor satisfies it through a small adapter in main.
type ClientFunc func(ctx context.Context, host string) (TrendingClient, error)

// SourceConfig holds candidate ingestion settings.
type SourceConfig struct {
	Subscriptions []Subscription

	LocalEnabled       bool
	LocalFetchLimit    int
	LocalMinEngagement int
}

// Source gathers candidates from all subscribed hosts and, optionally, the
// publishing host's local timeline. Per-host fetches run concurrently and
// are joined before the result is returned; a failing host contributes
// nothing and never aborts the cycle.
type Source struct {
	cfg       SourceConfig
	clientFor ClientFunc
	local     LocalTimelineClient
	logger    zerolog.Logger
}

// NewSource creates a Source. local may be nil when local-timeline ingestion
// is disabled.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSource(cfg SourceConfig, clientFor ClientFunc, local LocalTimelineClient, logger zerolog.Logger) *Source {
	return &Source{
		cfg:       cfg,
		clientFor: clientFor,
		local:     local,
		logger:    logger.With().Str("component", "source").Logger(),
	}
}

// Gather returns this cycle's candidates. now is used for the local
// timeline's same-day cutoff.
func (s *Source) Gather(ctx context.Context, now time.Time) []Candidate {
	perHost := make([][]Candidate, len(s.cfg.Subscriptions))

	var wg sync.WaitGroup
	for i, sub := range s.cfg.Subscriptions {
		wg.Add(1)
		go func(i int, sub Subscription) {
			defer wg.Done()
			perHost[i] = s.fetchHost(ctx, sub)
		}(i, sub)
	}
	wg.Wait()

	var candidates []Candidate
	for _, batch := range perHost {
		candidates = append(candidates, batch...)
	}
	if s.cfg.LocalEnabled && s.local != nil {
		candidates = append(candidates, s.fetchLocal(ctx, now)...)
	}
	return candidates
}

func (s *Source) fetchHost(ctx context.Context, sub Subscription) []Candidate {
	client, err := s.clientFor(ctx, sub.Host)
	if err != nil {
		s.logger.Error().Err(err).Str("host", sub.Host).Msg("no client for host")
		metrics.RecordFetchError(sub.Host)
		return nil
	}
	statuses, err := client.TrendingStatuses(ctx, sub.FetchLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("host", sub.Host).Msg("trending fetch failed")
		metrics.RecordFetchError(sub.Host)
		return nil
	}

	candidates := make([]Candidate, 0, len(statuses))
	for _, st := range statuses {
		candidates = append(candidates, Candidate{Post: st, Origin: sub.Host})
	}
	s.logger.Debug().Str("host", sub.Host).Int("count", len(candidates)).
		Msg("trending fetched")
	return candidates
}

// fetchLocal ingests today's local-timeline posts that clear the engagement
// floor. Local posts have no trending signal, so both gates keep the bot
// from boosting stale or ignored posts off its own instance.
func (s *Source) fetchLocal(ctx context.Context, now time.Time) []Candidate {
	statuses, err := s.local.TimelineLocal(ctx, s.cfg.LocalFetchLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("local timeline fetch failed")
		metrics.RecordFetchError(LocalOrigin)
		return nil
	}

	today := now.UTC().Truncate(24 * time.Hour)
	var candidates []Candidate
	for _, st := range statuses {
		if st.CreatedAt.OrEpoch().UTC().Truncate(24 * time.Hour).Before(today) {
			continue
		}
		if st.EngagementTotal() < int64(s.cfg.LocalMinEngagement) {
			continue
		}
		candidates = append(candidates, Candidate{Post: st, Origin: LocalOrigin})
	}
	s.logger.Debug().Int("count", len(candidates)).Msg("local timeline fetched")
	return candidates
}

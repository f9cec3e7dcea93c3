// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BoostsTotal counts successfully published boosts.
	BoostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hype_boosts_total",
			Help: "Total number of boosts published",
		},
	)

	// SkipsTotal counts skipped candidates by stable reason code.
	SkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hype_skips_total",
			Help: "Total number of candidates skipped, by reason code",
		},
		[]string{"reason"},
	)

	// FetchErrorsTotal counts failed candidate fetches by source host.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hype_fetch_errors_total",
			Help: "Total number of candidate fetch failures, by source instance",
		},
		[]string{"instance"},
	)

	// CyclesTotal counts completed curation cycles.
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hype_cycles_total",
			Help: "Total number of curation cycles completed",
		},
	)

	// CycleDuration observes wall-clock curation cycle duration.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hype_cycle_duration_seconds",
			Help:    "Curation cycle duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// CandidatesConsidered observes how many candidates each cycle scored.
	CandidatesConsidered = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hype_candidates_considered",
			Help:    "Candidates considered per cycle",
			Buckets: []float64{0, 5, 10, 20, 40, 80, 160},
		},
	)
)

// RecordSkip increments the skip counter for the given reason code.
func RecordSkip(reason string) {
	SkipsTotal.WithLabelValues(reason).Inc()
}

// RecordFetchError increments the fetch-error counter for the given host.
func RecordFetchError(host string) {
	FetchErrorsTotal.WithLabelValues(host).Inc()
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

/*
Package metrics provides Prometheus metrics collection and export for the
curation pipeline.

Collection is always active; the HTTP listener that exposes the /metrics
endpoint is optional and controlled by the metrics_enabled and metrics_listen
settings.

# Metrics Endpoint

Metrics are exposed in Prometheus text format:

	curl http://localhost:9464/metrics

# Available Metrics

Pipeline:
  - hype_boosts_total: boosts published (counter)
  - hype_skips_total: candidates skipped (counter)
    Labels: reason (the stable skip reason codes that also appear in logs)
  - hype_fetch_errors_total: candidate fetch failures (counter)
    Labels: instance
  - hype_cycles_total: curation cycles completed (counter)
  - hype_cycle_duration_seconds: cycle duration (histogram)
  - hype_candidates_considered: candidates scored per cycle (histogram)

# Usage

Counters are package-level and incremented directly:

	metrics.BoostsTotal.Inc()
	metrics.RecordSkip("author-limit")
	metrics.RecordFetchError("mastodon.example")
*/
package metrics

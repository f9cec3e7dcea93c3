// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSkip(t *testing.T) {
	before := testutil.ToFloat64(SkipsTotal.WithLabelValues("author-limit"))
	RecordSkip("author-limit")
	RecordSkip("author-limit")
	after := testutil.ToFloat64(SkipsTotal.WithLabelValues("author-limit"))
	if after-before != 2 {
		t.Errorf("skip counter delta = %v, want 2", after-before)
	}
}

func TestRecordFetchError(t *testing.T) {
	before := testutil.ToFloat64(FetchErrorsTotal.WithLabelValues("mastodon.example"))
	RecordFetchError("mastodon.example")
	after := testutil.ToFloat64(FetchErrorsTotal.WithLabelValues("mastodon.example"))
	if after-before != 1 {
		t.Errorf("fetch error counter delta = %v, want 1", after-before)
	}
}

func TestBoostCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(BoostsTotal)
	BoostsTotal.Inc()
	after := testutil.ToFloat64(BoostsTotal)
	if after-before != 1 {
		t.Errorf("boost counter delta = %v, want 1", after-before)
	}
}

func TestSkipReasonsIsolated(t *testing.T) {
	RecordSkip("hour-cap")
	if got := testutil.ToFloat64(SkipsTotal.WithLabelValues("no-such-reason")); got != 0 {
		t.Errorf("unrelated reason counter = %v, want 0", got)
	}
}

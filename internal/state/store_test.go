// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileStartsFresh(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	if s.Seen("anything") {
		t.Error("fresh store reports a key as seen")
	}
	day, hour := s.Counts()
	if day != 0 || hour != 0 {
		t.Errorf("fresh counts = %d/%d, want 0/0", day, hour)
	}
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := Load(path)
	if s.Seen("anything") {
		t.Error("corrupt-file store reports a key as seen")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	now := time.Date(2026, 8, 24, 14, 5, 0, 0, time.UTC)

	s := Load(path)
	s.Tick(now)
	s.MarkSeen("114", "https://a.example/@u/114")
	if !s.Consume(48, 0) {
		t.Fatal("Consume() = false with headroom")
	}
	s.RecordAuthorBoost("u@a.example")
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := Load(path)
	loaded.Tick(now)
	if !loaded.Seen("114") || !loaded.Seen("https://a.example/@u/114") {
		t.Error("seen keys lost across save/load")
	}
	day, hour := loaded.Counts()
	if day != 1 || hour != 1 {
		t.Errorf("counts after reload = %d/%d, want 1/1", day, hour)
	}
	if got := loaded.AuthorBoostsToday("u@a.example"); got != 1 {
		t.Errorf("AuthorBoostsToday() = %d, want 1", got)
	}
}

func TestTickHourRollover(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	now := time.Date(2026, 8, 24, 14, 59, 0, 0, time.UTC)
	s.Tick(now)
	if !s.Consume(48, 1) {
		t.Fatal("first Consume() = false")
	}
	if s.Consume(48, 1) {
		t.Error("second Consume() in same hour succeeded with hour cap 1")
	}

	s.Tick(now.Add(time.Minute))
	if !s.Consume(48, 1) {
		t.Error("Consume() = false after hour rollover")
	}
	day, hour := s.Counts()
	if day != 2 || hour != 1 {
		t.Errorf("counts after rollover = %d/%d, want 2/1", day, hour)
	}
}

func TestTickDayRolloverClearsAuthors(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	now := time.Date(2026, 8, 24, 23, 30, 0, 0, time.UTC)
	s.Tick(now)
	s.Consume(48, 1)
	s.RecordAuthorBoost("u@a.example")

	s.Tick(now.Add(time.Hour))
	day, hour := s.Counts()
	if day != 0 || hour != 0 {
		t.Errorf("counts after day rollover = %d/%d, want 0/0", day, hour)
	}
	if got := s.AuthorBoostsToday("u@a.example"); got != 0 {
		t.Errorf("AuthorBoostsToday() after day rollover = %d, want 0", got)
	}
}

func TestTickSameWindowKeepsCounts(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	now := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	s.Tick(now)
	s.Consume(0, 0)
	s.Tick(now.Add(30 * time.Minute))
	day, hour := s.Counts()
	if day != 1 || hour != 1 {
		t.Errorf("counts = %d/%d, want 1/1 within same windows", day, hour)
	}
}

func TestConsumeRespectsDayCap(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	s.Tick(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	for i := 0; i < 3; i++ {
		if !s.Consume(3, 0) {
			t.Fatalf("Consume() #%d = false under cap", i+1)
		}
	}
	if s.Consume(3, 0) {
		t.Error("Consume() succeeded past day cap")
	}
	if s.Available(3, 0) {
		t.Error("Available() = true at day cap")
	}
	if !s.Available(0, 0) {
		t.Error("Available() = false with unlimited caps")
	}
}

func TestSeenCacheEviction(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"), WithSeenCacheSize(3))
	s.MarkSeen("a", "b", "c")
	s.MarkSeen("d")
	if s.Seen("a") {
		t.Error("oldest entry survived eviction")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !s.Seen(k) {
			t.Errorf("entry %q evicted prematurely", k)
		}
	}
	if s.SeenLen() != 3 {
		t.Errorf("SeenLen() = %d, want 3", s.SeenLen())
	}
}

func TestSeenCacheDuplicateSurvivesOldEviction(t *testing.T) {
	c := newSeenCache(3, nil)
	c.Add("x")
	c.Add("y")
	c.Add("x")
	c.Add("z")
	if !c.Contains("x") {
		t.Error("newer duplicate of x lost membership when older x evicted")
	}
	if c.Contains("y") {
		t.Error("y should have been evicted")
	}
}

func TestLoadTruncatesOversizedSeenList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := Load(path, WithSeenCacheSize(2))
	s.MarkSeen("a", "b", "c", "d")
	if s.SeenLen() != 2 {
		t.Errorf("SeenLen() = %d, want 2", s.SeenLen())
	}
	if s.Seen("a") || s.Seen("b") {
		t.Error("evicted entries still reported as seen")
	}
}

func TestSavePreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	doc := `{"seen_status_ids":["114"],"day":"2026-08-24","day_count":1,` +
		`"hour":"2026-08-24T14","hour_count":1,"authors_boosted_today":{},` +
		`"future_field":{"nested":true}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	s := Load(path)
	s.MarkSeen("115")
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"future_field"`) {
		t.Errorf("saved document lost unknown field:\n%s", data)
	}
	if !strings.Contains(string(data), `"115"`) {
		t.Errorf("saved document lost new seen key:\n%s", data)
	}
}

func TestTickBackwardClockIsNoOp(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	now := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	s.Tick(now)
	if !s.Consume(48, 0) {
		t.Fatal("Consume() = false with headroom")
	}

	s.Tick(now.Add(-2 * time.Hour))
	day, hour := s.Counts()
	if day != 1 || hour != 1 {
		t.Errorf("counts after backward tick = %d/%d, want 1/1 (no reset)", day, hour)
	}
}

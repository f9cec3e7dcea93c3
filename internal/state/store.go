// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package state persists the bot's memory between cycles and restarts: which
// statuses were already boosted (a bounded FIFO of ids and URLs), which
// authors were boosted today, and the running day/hour boost counters the
// rate budget is enforced against.
//
// Everything lives in one small JSON document on disk. Saves are atomic
// (write temp file, rename) so a crash mid-save never corrupts the previous
// state, and loads tolerate a missing or corrupt file by starting fresh: the
// worst outcome of lost state is a duplicate boost, never a crash loop.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultSeenCacheSize is the bound on the seen-status FIFO.
const DefaultSeenCacheSize = 6000

const (
	dayKeyFormat  = "2006-01-02"
	hourKeyFormat = "2006-01-02T15"
)

// document is the on-disk JSON shape.
type document struct {
	SeenStatusIDs       []string       `json:"seen_status_ids"`
	AuthorsBoostedToday map[string]int `json:"authors_boosted_today"`
	Day                 string         `json:"day"`
	DayCount            int            `json:"day_count"`
	Hour                string         `json:"hour"`
	HourCount           int            `json:"hour_count"`
}

// knownKeys are the document fields owned by this version. Anything else in
// the file is carried through saves untouched.
var knownKeys = map[string]bool{
	"seen_status_ids":       true,
	"authors_boosted_today": true,
	"day":                   true,
	"day_count":             true,
	"hour":                  true,
	"hour_count":            true,
}

// Store is the persistent bot state. All methods are safe for concurrent
// use, though in practice a single engine cycle owns it at a time.
type Store struct {
	mu     sync.Mutex
	path   string
	seen   *seenCache
	doc    document
	extras map[string]json.RawMessage
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSeenCacheSize overrides the seen-cache bound, evicting immediately if
// the loaded file holds more entries than the new bound.
func WithSeenCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.seen.setCap(n)
		}
	}
}

// WithLogger attaches a logger to the store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "state").Logger()
	}
}

// Load reads the state file at path. A missing file yields a fresh store; a
// corrupt file is logged and likewise replaced with a fresh store, since the
// state is advisory and must never prevent startup.
func Load(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: zerolog.Nop(),
	}

	var doc document
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := json.Unmarshal(data, &doc); uerr != nil {
			doc = document{}
			s.logger.Warn().Err(uerr).Str("path", path).
				Msg("corrupt state file, starting fresh")
		} else {
			// Unknown fields (say, from a newer version) survive the
			// load/save round trip.
			var raw map[string]json.RawMessage
			if json.Unmarshal(data, &raw) == nil {
				for key := range raw {
					if knownKeys[key] {
						delete(raw, key)
					}
				}
				if len(raw) > 0 {
					s.extras = raw
				}
			}
		}
	case os.IsNotExist(err):
		// First run.
	default:
		s.logger.Warn().Err(err).Str("path", path).
			Msg("unreadable state file, starting fresh")
	}
	if doc.AuthorsBoostedToday == nil {
		doc.AuthorsBoostedToday = make(map[string]int)
	}

	s.doc = doc
	s.seen = newSeenCache(DefaultSeenCacheSize, doc.SeenStatusIDs)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the state atomically: a temp file in the same directory is
// renamed over the target so readers never observe a partial document.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.SeenStatusIDs = s.seen.Entries()
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// encode marshals the document, folding preserved unknown fields back in.
func (s *Store) encode() ([]byte, error) {
	if len(s.extras) == 0 {
		return json.MarshalIndent(&s.doc, "", "  ")
	}

	own, err := json.Marshal(&s.doc)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(s.extras)+len(knownKeys))
	for key, val := range s.extras {
		merged[key] = val
	}
	var ownMap map[string]json.RawMessage
	if err := json.Unmarshal(own, &ownMap); err != nil {
		return nil, err
	}
	for key, val := range ownMap {
		merged[key] = val
	}
	return json.MarshalIndent(merged, "", "  ")
}

// Seen reports whether any of the given keys is in the seen cache.
func (s *Store) Seen(keys ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if s.seen.Contains(k) {
			return true
		}
	}
	return false
}

// MarkSeen records the given keys in the seen cache, evicting the oldest
// entries when the bound is exceeded.
func (s *Store) MarkSeen(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.seen.Add(k)
	}
}

// SeenLen returns the current number of seen-cache entries.
func (s *Store) SeenLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.Len()
}

// Tick rolls the day and hour windows forward to the one containing now
// (UTC). Crossing a day boundary resets the day counter and the per-author
// map; crossing an hour boundary resets the hour counter. Counts from a
// previous run in the same window are kept, which is what makes the caps
// hold across restarts. The keys sort lexicographically, so a backward
// clock jump never rolls a window and never resets a counter early.
func (s *Store) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := now.UTC().Format(dayKeyFormat)
	hour := now.UTC().Format(hourKeyFormat)

	if day > s.doc.Day {
		s.doc.Day = day
		s.doc.DayCount = 0
		s.doc.AuthorsBoostedToday = make(map[string]int)
	}
	if hour > s.doc.Hour {
		s.doc.Hour = hour
		s.doc.HourCount = 0
	}
}

// Counts returns the boosts consumed in the current day and hour windows.
func (s *Store) Counts() (day, hour int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.DayCount, s.doc.HourCount
}

// Available reports whether both caps still have room. A cap of zero or
// less means unlimited for that window.
func (s *Store) Available(dayCap, hourCap int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dayCap > 0 && s.doc.DayCount >= dayCap {
		return false
	}
	if hourCap > 0 && s.doc.HourCount >= hourCap {
		return false
	}
	return true
}

// Consume spends one unit from both windows. It fails without side effects
// when either cap is exhausted, so a successful boost always fits both.
func (s *Store) Consume(dayCap, hourCap int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dayCap > 0 && s.doc.DayCount >= dayCap {
		return false
	}
	if hourCap > 0 && s.doc.HourCount >= hourCap {
		return false
	}
	s.doc.DayCount++
	s.doc.HourCount++
	return true
}

// AuthorBoostsToday returns how many boosts the author received in the
// current day window.
func (s *Store) AuthorBoostsToday(handle string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.AuthorsBoostedToday[handle]
}

// RecordAuthorBoost increments the author's count for the current day.
func (s *Store) RecordAuthorBoost(handle string) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AuthorsBoostedToday[handle]++
}

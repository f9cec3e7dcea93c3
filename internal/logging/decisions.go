// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package logging

import (
	"github.com/rs/zerolog"
)

// Decisions returns the logger used for per-candidate selection traces.
//
// When enabled is false the returned logger is disabled entirely, so callers
// can trace unconditionally:
//
//	trace := logging.Decisions(cfg.DebugDecisions)
//	trace.Debug().Str("status", id).Float64("score", s).Msg("scored")
//
// Traces are emitted at debug level regardless of the main log level, so
// debug_decisions=true is sufficient to see them without raising log_level.
func Decisions(enabled bool) zerolog.Logger {
	if !enabled {
		return zerolog.Nop()
	}
	mu.RLock()
	defer mu.RUnlock()
	return zerolog.New(out).Level(zerolog.DebugLevel).With().
		Timestamp().Str("channel", "decisions").Logger()
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package config loads Hype's layered configuration: built-in defaults,
// the auth document, the settings document, and HYPE_-prefixed environment
// variables, in ascending precedence. A missing or incomplete auth document
// is fatal; everything else has a working default.
package config

import (
	"fmt"
	"strings"
)

const (
	// minFetchLimit and maxFetchLimit bound per-host trending page sizes.
	// The trends API serves at most 20 entries per request.
	minFetchLimit = 1
	maxFetchLimit = 20

	defaultFetchLimit = 20
	defaultBoostLimit = 5
)

// BotAccount identifies the publishing account. Both fields are required.
type BotAccount struct {
	// Server is the publishing host, e.g. "mastodon.example".
	Server string `koanf:"server"`

	// AccessToken is a long-lived token with write:statuses (and, for the
	// federation fallback, read:search) scope.
	AccessToken string `koanf:"access_token"`
}

// InstanceLimits are the per-subscription ingestion bounds.
type InstanceLimits struct {
	// FetchLimit is how many trending posts to request, clamped to [1,20].
	FetchLimit int

	// BoostLimit caps boosts from this host per cycle.
	BoostLimit int
}

// Config is the complete runtime configuration.
type Config struct {
	BotAccount BotAccount `koanf:"bot_account"`

	// Interval is the scheduler period in minutes.
	Interval int `koanf:"interval"`

	// Logging.
	LogLevel       string `koanf:"log_level"`
	LogFormat      string `koanf:"log_format"`
	LogfilePath    string `koanf:"logfile_path"`
	DebugDecisions bool   `koanf:"debug_decisions"`

	// SubscribedInstances maps host names to ingestion limits. The settings
	// document accepts the composite form {host: {fetch_limit, boost_limit}}
	// or the legacy {host: limit} which sets both. Parsed manually.
	SubscribedInstances map[string]InstanceLimits `koanf:"-"`

	// FilteredInstances lists host suffixes whose authors are never boosted.
	FilteredInstances []string `koanf:"filtered_instances"`

	// Rate ceilings.
	DailyPublicCap   int `koanf:"daily_public_cap"`
	PerHourPublicCap int `koanf:"per_hour_public_cap"`
	MaxBoostsPerRun  int `koanf:"max_boosts_per_run"`

	// Diversity.
	AuthorDiversityEnforced   bool `koanf:"author_diversity_enforced"`
	MaxBoostsPerAuthorPerDay  int  `koanf:"max_boosts_per_author_per_day"`
	HashtagDiversityEnforced  bool `koanf:"hashtag_diversity_enforced"`
	MaxBoostsPerHashtagPerRun int  `koanf:"max_boosts_per_hashtag_per_run"`

	// Content filters.
	RequireMedia                 bool     `koanf:"require_media"`
	SkipSensitiveWithoutCW       bool     `koanf:"skip_sensitive_without_cw"`
	LanguagesAllowlist           []string `koanf:"languages_allowlist"`
	UseMastodonLanguageDetection bool     `koanf:"use_mastodon_language_detection"`
	MinReblogs                   int      `koanf:"min_reblogs"`
	MinFavourites                int      `koanf:"min_favourites"`
	MinReplies                   int      `koanf:"min_replies"`

	// Scoring. PreferMedia accepts a float or a bool (true maps to 1.0) in
	// the settings document; parsed manually.
	PreferMedia        float64                       `koanf:"-"`
	HashtagScores      map[string]float64            `koanf:"hashtag_scores"`
	RelatedHashtags    map[string]map[string]float64 `koanf:"related_hashtags"`
	SpamEmojiThreshold int                           `koanf:"spam_emoji_threshold"`
	SpamEmojiPenalty   float64                       `koanf:"spam_emoji_penalty"`
	SpamLinkPenalty    float64                       `koanf:"spam_link_penalty"`
	MinScoreThreshold  float64                       `koanf:"min_score_threshold"`

	// Age decay.
	AgeDecayEnabled       bool    `koanf:"age_decay_enabled"`
	AgeDecayHalfLifeHours float64 `koanf:"age_decay_half_life_hours"`

	// FederateMissingStatuses enables the search(resolve) fallback for
	// posts the publishing host does not know yet.
	FederateMissingStatuses bool `koanf:"federate_missing_statuses"`

	// Local timeline ingestion.
	LocalTimelineEnabled       bool `koanf:"local_timeline_enabled"`
	LocalTimelineFetchLimit    int  `koanf:"local_timeline_fetch_limit"`
	LocalTimelineBoostLimit    int  `koanf:"local_timeline_boost_limit"`
	LocalTimelineMinEngagement int  `koanf:"local_timeline_min_engagement"`

	// Persistence.
	StatePath     string `koanf:"state_path"`
	SeenCacheSize int    `koanf:"seen_cache_size"`
	SecretsDir    string `koanf:"secrets_dir"`

	// Metrics listener.
	MetricsEnabled bool   `koanf:"metrics_enabled"`
	MetricsListen  string `koanf:"metrics_listen"`

	// Profile updater.
	ProfileUpdateEnabled bool              `koanf:"profile_update_enabled"`
	ProfilePrefix        string            `koanf:"profile_prefix"`
	Fields               map[string]string `koanf:"fields"`
}

// defaultConfig returns the built-in defaults, applied before the settings
// document and environment overrides.
func defaultConfig() *Config {
	return &Config{
		Interval: 15,

		LogLevel:  "info",
		LogFormat: "json",

		DailyPublicCap:   48,
		PerHourPublicCap: 1,
		MaxBoostsPerRun:  5,

		AuthorDiversityEnforced:   true,
		MaxBoostsPerAuthorPerDay:  1,
		HashtagDiversityEnforced:  true,
		MaxBoostsPerHashtagPerRun: 1,

		RequireMedia:                 true,
		SkipSensitiveWithoutCW:       true,
		UseMastodonLanguageDetection: true,

		SpamEmojiThreshold: 2,
		SpamEmojiPenalty:   1.0,
		SpamLinkPenalty:    0.5,

		AgeDecayHalfLifeHours: 24,

		LocalTimelineEnabled:    true,
		LocalTimelineFetchLimit: 20,
		LocalTimelineBoostLimit: 5,

		StatePath:     "state.json",
		SeenCacheSize: 6000,
		SecretsDir:    "secrets",

		MetricsListen: ":9464",
	}
}

// Validate checks the configuration for fatal problems and normalizes
// bounded values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BotAccount.Server) == "" {
		return fmt.Errorf("bot_account.server is required")
	}
	if strings.TrimSpace(c.BotAccount.AccessToken) == "" {
		return fmt.Errorf("bot_account.access_token is required")
	}
	if c.Interval < 1 {
		return fmt.Errorf("interval must be at least 1 minute, got %d", c.Interval)
	}
	if c.SeenCacheSize < 1 {
		return fmt.Errorf("seen_cache_size must be positive, got %d", c.SeenCacheSize)
	}

	for host, limits := range c.SubscribedInstances {
		limits.FetchLimit = clampFetchLimit(limits.FetchLimit)
		if limits.BoostLimit < 1 {
			limits.BoostLimit = defaultBoostLimit
		}
		c.SubscribedInstances[host] = limits
	}
	c.LocalTimelineFetchLimit = clampFetchLimit(c.LocalTimelineFetchLimit)
	return nil
}

func clampFetchLimit(n int) int {
	if n < minFetchLimit {
		return defaultFetchLimit
	}
	if n > maxFetchLimit {
		return maxFetchLimit
	}
	return n
}

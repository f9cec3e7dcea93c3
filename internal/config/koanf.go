// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/feditrend/hype/internal/logging"
)

// Search paths for the two configuration documents, in priority order.
var (
	DefaultAuthPaths = []string{
		"auth.yaml",
		"/etc/hype/auth.yaml",
		"/app/config/auth.yaml",
	}
	DefaultSettingsPaths = []string{
		"config.yaml",
		"config.yml",
		"/etc/hype/config.yaml",
		"/app/config/config.yaml",
	}
)

// Environment variables overriding the document paths.
const (
	AuthPathEnvVar     = "HYPE_AUTH_FILE"
	SettingsPathEnvVar = "HYPE_CONFIG_FILE"

	envPrefix = "HYPE_"
)

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Auth document (bot_account credentials; required)
//  3. Settings document (optional)
//  4. HYPE_-prefixed environment variables (highest priority)
//
// Environment values that fail to parse for their option's type are dropped
// with a warning so the next source's value stays in effect.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	authPath := findFile(AuthPathEnvVar, DefaultAuthPaths)
	if authPath == "" {
		return nil, fmt.Errorf("auth document not found (looked for %s)",
			strings.Join(DefaultAuthPaths, ", "))
	}
	if err := k.Load(file.Provider(authPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load auth document %s: %w", authPath, err)
	}

	if settingsPath := findFile(SettingsPathEnvVar, DefaultSettingsPaths); settingsPath != "" {
		if err := k.Load(file.Provider(settingsPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings document %s: %w", settingsPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	// Composite options koanf cannot decode directly.
	cfg.SubscribedInstances = parseInstances(k.Get("subscribed_instances"))
	cfg.PreferMedia = parsePreferMedia(k.Get("prefer_media"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findFile returns the env-var override when set, else the first existing
// path from the defaults.
func findFile(envVar string, paths []string) string {
	if p := os.Getenv(envVar); p != "" {
		return p
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKind describes how an environment override is parsed.
type envKind int

const (
	kindString envKind = iota
	kindInt
	kindFloat
	kindBool
	kindStringList
	kindFloatMap   // tag:weight,tag:weight
	kindNestedMap  // main:term:multiplier,main:term:multiplier
	kindStringMap  // name=value,name=value
	kindInstances  // host[:fetch[:boost]],host...
	kindBoolOrNum  // prefer_media
)

// envOptions maps lowercased HYPE_ keys to their config path and type.
var envOptions = map[string]struct {
	path string
	kind envKind
}{
	"bot_account_server":       {"bot_account.server", kindString},
	"bot_account_access_token": {"bot_account.access_token", kindString},

	"interval":        {"interval", kindInt},
	"log_level":       {"log_level", kindString},
	"log_format":      {"log_format", kindString},
	"logfile_path":    {"logfile_path", kindString},
	"debug_decisions": {"debug_decisions", kindBool},

	"subscribed_instances": {"subscribed_instances", kindInstances},
	"filtered_instances":   {"filtered_instances", kindStringList},

	"daily_public_cap":    {"daily_public_cap", kindInt},
	"per_hour_public_cap": {"per_hour_public_cap", kindInt},
	"max_boosts_per_run":  {"max_boosts_per_run", kindInt},

	"author_diversity_enforced":      {"author_diversity_enforced", kindBool},
	"max_boosts_per_author_per_day":  {"max_boosts_per_author_per_day", kindInt},
	"hashtag_diversity_enforced":     {"hashtag_diversity_enforced", kindBool},
	"max_boosts_per_hashtag_per_run": {"max_boosts_per_hashtag_per_run", kindInt},

	"require_media":                   {"require_media", kindBool},
	"skip_sensitive_without_cw":       {"skip_sensitive_without_cw", kindBool},
	"languages_allowlist":             {"languages_allowlist", kindStringList},
	"use_mastodon_language_detection": {"use_mastodon_language_detection", kindBool},
	"min_reblogs":                     {"min_reblogs", kindInt},
	"min_favourites":                  {"min_favourites", kindInt},
	"min_replies":                     {"min_replies", kindInt},

	"prefer_media":         {"prefer_media", kindBoolOrNum},
	"hashtag_scores":       {"hashtag_scores", kindFloatMap},
	"related_hashtags":     {"related_hashtags", kindNestedMap},
	"spam_emoji_threshold": {"spam_emoji_threshold", kindInt},
	"spam_emoji_penalty":   {"spam_emoji_penalty", kindFloat},
	"spam_link_penalty":    {"spam_link_penalty", kindFloat},
	"min_score_threshold":  {"min_score_threshold", kindFloat},

	"age_decay_enabled":         {"age_decay_enabled", kindBool},
	"age_decay_half_life_hours": {"age_decay_half_life_hours", kindFloat},

	"federate_missing_statuses": {"federate_missing_statuses", kindBool},

	"local_timeline_enabled":        {"local_timeline_enabled", kindBool},
	"local_timeline_fetch_limit":    {"local_timeline_fetch_limit", kindInt},
	"local_timeline_boost_limit":    {"local_timeline_boost_limit", kindInt},
	"local_timeline_min_engagement": {"local_timeline_min_engagement", kindInt},

	"state_path":      {"state_path", kindString},
	"seen_cache_size": {"seen_cache_size", kindInt},
	"secrets_dir":     {"secrets_dir", kindString},

	"metrics_enabled": {"metrics_enabled", kindBool},
	"metrics_listen":  {"metrics_listen", kindString},

	"profile_update_enabled": {"profile_update_enabled", kindBool},
	"profile_prefix":         {"profile_prefix", kindString},
	"fields":                 {"fields", kindStringMap},
}

// envTransform resolves one environment variable to a koanf path and typed
// value. Unknown keys and unparsable values are skipped; the latter with a
// warning, keeping the file or default value in effect.
func envTransform(rawKey, rawValue string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(rawKey, envPrefix))
	if key == strings.ToLower(AuthPathEnvVar[len(envPrefix):]) ||
		key == strings.ToLower(SettingsPathEnvVar[len(envPrefix):]) {
		return "", nil
	}
	opt, ok := envOptions[key]
	if !ok {
		return "", nil
	}

	value, err := parseEnvValue(opt.kind, rawValue)
	if err != nil {
		logging.Warn().Str("variable", rawKey).Str("value", rawValue).Err(err).
			Msg("invalid environment override ignored")
		return "", nil
	}
	return opt.path, value
}

func parseEnvValue(kind envKind, raw string) (interface{}, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindInt:
		return strconv.Atoi(strings.TrimSpace(raw))
	case kindFloat:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case kindBool:
		return parseBool(raw)
	case kindStringList:
		return splitList(raw), nil
	case kindFloatMap:
		return parseFloatMap(raw)
	case kindNestedMap:
		return parseNestedMap(raw)
	case kindStringMap:
		return parseStringMap(raw)
	case kindInstances:
		return parseInstancesEnv(raw)
	case kindBoolOrNum:
		if b, err := parseBool(raw); err == nil {
			if b {
				return 1.0, nil
			}
			return 0.0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	default:
		return nil, fmt.Errorf("unknown option kind")
	}
}

// parseBool accepts the documented boolean spellings.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", raw)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseFloatMap parses "tag:weight,tag:weight".
func parseFloatMap(raw string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, entry := range splitList(raw) {
		key, val, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q is not key:value", entry)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		out[strings.TrimSpace(key)] = f
	}
	return out, nil
}

// parseNestedMap parses "main:term:multiplier,main:term:multiplier".
func parseNestedMap(raw string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q is not main:term:multiplier", entry)
		}
		mult, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		main := strings.TrimSpace(parts[0])
		inner, _ := out[main].(map[string]interface{})
		if inner == nil {
			inner = make(map[string]interface{})
			out[main] = inner
		}
		inner[strings.TrimSpace(parts[1])] = mult
	}
	return out, nil
}

// parseStringMap parses "name=value,name=value".
func parseStringMap(raw string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, entry := range splitList(raw) {
		key, val, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not name=value", entry)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return out, nil
}

// parseInstancesEnv parses "host[:fetch[:boost]],host..." into the same
// shape the YAML composite form produces.
func parseInstancesEnv(raw string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, ":")
		host := strings.TrimSpace(parts[0])
		if host == "" {
			return nil, fmt.Errorf("entry %q has no host", entry)
		}
		switch len(parts) {
		case 1:
			out[host] = map[string]interface{}{}
		case 2:
			limit, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", entry, err)
			}
			out[host] = limit
		case 3:
			fetch, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", entry, err)
			}
			boost, err := strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", entry, err)
			}
			out[host] = map[string]interface{}{
				"fetch_limit": fetch,
				"boost_limit": boost,
			}
		default:
			return nil, fmt.Errorf("entry %q is not host[:fetch[:boost]]", entry)
		}
	}
	return out, nil
}

// parseInstances converts the raw subscribed_instances value (from YAML or
// the env overlay) into typed limits. The legacy integer form sets both
// limits to the same value.
func parseInstances(v interface{}) map[string]InstanceLimits {
	raw, ok := v.(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]InstanceLimits, len(raw))
	for host, entry := range raw {
		limits := InstanceLimits{
			FetchLimit: defaultFetchLimit,
			BoostLimit: defaultBoostLimit,
		}
		switch val := entry.(type) {
		case int:
			limits.FetchLimit, limits.BoostLimit = val, val
		case int64:
			limits.FetchLimit, limits.BoostLimit = int(val), int(val)
		case float64:
			limits.FetchLimit, limits.BoostLimit = int(val), int(val)
		case map[string]interface{}:
			if n, ok := toInt(val["fetch_limit"]); ok {
				limits.FetchLimit = n
			}
			if n, ok := toInt(val["boost_limit"]); ok {
				limits.BoostLimit = n
			}
		}
		out[host] = limits
	}
	return out
}

// parsePreferMedia accepts a float, an int, a bool, or the documented
// boolean spellings as strings.
func parsePreferMedia(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case bool:
		if val {
			return 1.0
		}
	case string:
		if b, err := parseBool(val); err == nil {
			if b {
				return 1.0
			}
			return 0.0
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return 0.0
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package policy

import (
	"strings"

	"github.com/feditrend/hype/internal/mastodon"
)

// FilterConfig holds the content-filter knobs.
type FilterConfig struct {
	// RequireMedia skips posts without any media attachment.
	RequireMedia bool

	// SkipSensitiveWithoutCW skips sensitive posts whose content warning is
	// empty or whitespace.
	SkipSensitiveWithoutCW bool

	// Languages is the language allowlist (ISO 639-1 codes). Empty means no
	// language filtering.
	Languages []string

	// UseServerLanguage trusts the language field the server reports. When
	// false the language is detected from the post content instead.
	UseServerLanguage bool

	// Engagement floors. Zero disables each floor.
	MinReblogs    int
	MinFavourites int
	MinReplies    int
}

// DefaultFilterConfig returns the default filter configuration.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		RequireMedia:           true,
		SkipSensitiveWithoutCW: true,
		UseServerLanguage:      true,
	}
}

// Filter applies the content-level eligibility checks to a post.
type Filter struct {
	cfg   FilterConfig
	langs map[string]bool
}

// NewFilter creates a Filter. Allowlist entries are lowercased once.
func NewFilter(cfg FilterConfig) *Filter {
	langs := make(map[string]bool, len(cfg.Languages))
	for _, l := range cfg.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			langs[l] = true
		}
	}
	return &Filter{cfg: cfg, langs: langs}
}

// Check returns the first skip reason that applies, or ok=true when the post
// passes every check. Missing fields are treated conservatively: absent
// counts are zero and absent strings empty.
func (f *Filter) Check(post *mastodon.Status) (reason Reason, ok bool) {
	if f.cfg.RequireMedia && !post.HasMedia() {
		return ReasonRequireMedia, false
	}
	if f.cfg.SkipSensitiveWithoutCW && post.Sensitive &&
		strings.TrimSpace(post.SpoilerText) == "" {
		return ReasonSensitive, false
	}
	if len(f.langs) > 0 && !f.languageAllowed(post) {
		return ReasonLanguage, false
	}
	if int(post.ReblogsCount) < f.cfg.MinReblogs ||
		int(post.FavouritesCount) < f.cfg.MinFavourites ||
		int(post.RepliesCount) < f.cfg.MinReplies {
		return ReasonEngagementFloor, false
	}
	return "", true
}

// languageAllowed resolves the post's language and checks it against the
// allowlist. Server detection falls back to the content heuristic when the
// server reports no language; an undetectable (too short) post fails
// closed. Only the primary subtag of a BCP 47 tag is compared.
func (f *Filter) languageAllowed(post *mastodon.Status) bool {
	var lang string
	if f.cfg.UseServerLanguage {
		lang = post.Language
	}
	if strings.TrimSpace(lang) == "" {
		lang = DetectLanguage(post.Content)
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return false
	}
	return f.langs[lang]
}

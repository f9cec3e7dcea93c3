// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package scoring assigns each candidate post a deterministic real-valued
// score from configured hashtag weights, engagement counts, a media bonus,
// spam penalties, and an optional multiplicative age decay. The score may be
// negative; selection normalizes and ranks on it.
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/feditrend/hype/internal/mastodon"
)

// Config holds the scoring knobs.
type Config struct {
	// HashtagScores maps lowercased hashtag names to signed weights.
	HashtagScores map[string]float64

	// RelatedHashtags maps a main hashtag to related terms and their
	// multipliers. A post without the main tag that mentions a related term
	// earns HashtagScores[main] * multiplier, at most once per main tag.
	RelatedHashtags map[string]map[string]float64

	// PreferMedia is added when the post has at least one attachment.
	PreferMedia float64

	// SpamEmojiThreshold is the emoji count above which each extra emoji
	// costs SpamEmojiPenalty.
	SpamEmojiThreshold int
	SpamEmojiPenalty   float64

	// SpamLinkPenalty is subtracted when the content contains any URL.
	SpamLinkPenalty float64

	// AgeDecayEnabled applies 0.5^(age_hours/half_life) multiplicatively to
	// the whole score.
	AgeDecayEnabled       bool
	AgeDecayHalfLifeHours float64
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		SpamEmojiThreshold:    2,
		SpamEmojiPenalty:      1.0,
		SpamLinkPenalty:       0.5,
		AgeDecayHalfLifeHours: 24,
	}
}

// Scorer scores posts. It is stateless apart from its configuration and safe
// for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a Scorer. Hashtag keys are lowercased once here so per-post
// lookups stay cheap.
func New(cfg Config) *Scorer {
	lowered := make(map[string]float64, len(cfg.HashtagScores))
	for k, v := range cfg.HashtagScores {
		lowered[strings.ToLower(k)] = v
	}
	cfg.HashtagScores = lowered

	related := make(map[string]map[string]float64, len(cfg.RelatedHashtags))
	for main, terms := range cfg.RelatedHashtags {
		t := make(map[string]float64, len(terms))
		for term, mult := range terms {
			t[strings.ToLower(term)] = mult
		}
		related[strings.ToLower(main)] = t
	}
	cfg.RelatedHashtags = related

	return &Scorer{cfg: cfg}
}

// Score computes the post's raw score at the given instant. The result is a
// pure function of the post, the configuration, and now.
func (s *Scorer) Score(post *mastodon.Status, now time.Time) float64 {
	tags := post.TagNames()
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}

	score := 0.0
	for _, t := range tags {
		score += s.cfg.HashtagScores[t]
	}
	score += s.relatedBonus(post, tags, tagSet)

	score += 2*math.Log1p(float64(post.ReblogsCount)) +
		math.Log1p(float64(post.FavouritesCount)) +
		1.5*math.Log1p(float64(post.RepliesCount))

	if post.HasMedia() {
		score += s.cfg.PreferMedia
	}

	score -= s.spamPenalty(post.Content)

	if s.cfg.AgeDecayEnabled && s.cfg.AgeDecayHalfLifeHours > 0 {
		age := now.Sub(post.CreatedAt.OrEpoch()).Hours()
		if age > 0 {
			score *= math.Pow(0.5, age/s.cfg.AgeDecayHalfLifeHours)
		}
	}
	return score
}

// relatedBonus awards at most one bonus per configured main hashtag: the
// post must not carry the main tag itself, the main tag's weight must be
// positive, and the content or tag names must mention a related term. Terms
// are checked in sorted order so the result does not depend on map order.
func (s *Scorer) relatedBonus(post *mastodon.Status, tags []string, tagSet map[string]bool) float64 {
	if len(s.cfg.RelatedHashtags) == 0 {
		return 0
	}
	haystack := strings.ToLower(post.Content)
	if len(tags) > 0 {
		haystack += " " + strings.Join(tags, " ")
	}

	bonus := 0.0
	for main, terms := range s.cfg.RelatedHashtags {
		weight := s.cfg.HashtagScores[main]
		if weight <= 0 || tagSet[main] {
			continue
		}
		ordered := make([]string, 0, len(terms))
		for term := range terms {
			ordered = append(ordered, term)
		}
		sort.Strings(ordered)
		for _, term := range ordered {
			if term != "" && strings.Contains(haystack, term) {
				bonus += weight * terms[term]
				break
			}
		}
	}
	return bonus
}

// spamPenalty returns the penalty for emoji flooding and links in content.
func (s *Scorer) spamPenalty(content string) float64 {
	penalty := 0.0
	if n := countEmojis(content); n > s.cfg.SpamEmojiThreshold {
		penalty += float64(n-s.cfg.SpamEmojiThreshold) * s.cfg.SpamEmojiPenalty
	}
	if containsLink(content) {
		penalty += s.cfg.SpamLinkPenalty
	}
	return penalty
}

// Normalize maps raw scores linearly onto [0, 100] in place order: min maps
// to 0, max to 100, and when all scores are equal every entry gets 100.
func Normalize(raw []float64) []float64 {
	if len(raw) == 0 {
		return nil
	}
	minV, maxV := raw[0], raw[0]
	for _, v := range raw[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	normalized := make([]float64, len(raw))
	if minV == maxV {
		for i := range normalized {
			normalized[i] = 100
		}
		return normalized
	}
	span := maxV - minV
	for i, v := range raw {
		normalized[i] = (v - minV) / span * 100
	}
	return normalized
}

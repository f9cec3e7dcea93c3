// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package policy

import (
	"regexp"
	"strings"
)

// stopwords are high-frequency function words per language. A handful per
// language is enough to separate the major fediverse languages on typical
// post-length text without pulling in a detection library.
var stopwords = map[string][]string{
	"en": {"the", "and", "is", "are", "was", "for", "with", "that", "this", "have", "not", "you"},
	"nl": {"de", "het", "een", "en", "van", "ik", "dat", "niet", "met", "voor", "zijn", "maar"},
	"fr": {"le", "la", "les", "et", "est", "pas", "que", "des", "une", "dans", "pour", "avec"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "mit", "von", "auf", "für", "sich"},
	"es": {"el", "la", "los", "las", "y", "es", "no", "que", "una", "por", "con", "para"},
	"it": {"il", "la", "di", "che", "e", "non", "un", "una", "per", "sono", "con", "del"},
	"pt": {"o", "a", "os", "as", "e", "não", "que", "um", "uma", "para", "com", "por"},
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	htmlEntityPattern = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	wordPattern       = regexp.MustCompile(`[\p{L}']+`)
)

// minDetectionWords is the minimum token count for a detection attempt.
// Shorter content is reported as unknown rather than guessed.
const minDetectionWords = 3

// DetectLanguage guesses the language of post content by counting stopword
// hits per known language over the HTML-stripped text. It returns an ISO
// 639-1 code, or "" when the content is too short or matches nothing.
func DetectLanguage(content string) string {
	text := strings.ToLower(StripHTML(content))
	words := wordPattern.FindAllString(text, -1)
	if len(words) < minDetectionWords {
		return ""
	}
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}

	best, bestHits := "", 0
	// Deterministic iteration keeps ties stable.
	for _, lang := range []string{"en", "nl", "fr", "de", "es", "it", "pt"} {
		hits := 0
		for _, sw := range stopwords[lang] {
			if present[sw] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	if bestHits == 0 {
		return ""
	}
	return best
}

// StripHTML removes tags and entities from rendered post content, leaving
// plain text. Mastodon content is sanitized HTML, so a tag regexp is safe.
func StripHTML(s string) string {
	s = strings.ReplaceAll(s, "<br>", " ")
	s = strings.ReplaceAll(s, "</p>", " ")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = htmlEntityPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

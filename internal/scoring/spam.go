// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package scoring

import "regexp"

// urlPattern matches http(s) links and bare www. links inside post content.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+|www\.[^\s<>"]+`)

// emojiRanges are the Unicode blocks counted as emoji: emoticons, misc
// symbols and pictographs, transport, regional indicators (flags), dingbats,
// and enclosed characters.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// countEmojis returns the number of emoji runes in s.
func countEmojis(s string) int {
	n := 0
	for _, r := range s {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

// containsLink reports whether s contains an http(s) or www. URL.
func containsLink(s string) bool {
	return urlPattern.MatchString(s)
}

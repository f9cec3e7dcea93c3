// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package mastodon is a minimal Mastodon REST client covering the endpoints
// Hype needs: trending statuses, the local timeline, reblogging, search with
// federation resolve, app registration, and profile updates.
//
// The wire types are deliberately tolerant: federated servers disagree about
// field presence and numeric encodings, so counts accept numbers, numeric
// strings, and null, and timestamps accept RFC 3339 or nothing at all.
package mastodon

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Status is a single post as returned by the Mastodon API.
type Status struct {
	ID               string            `json:"id"`
	URI              string            `json:"uri"`
	URL              string            `json:"url"`
	CreatedAt        Time              `json:"created_at"`
	Account          Account           `json:"account"`
	Content          string            `json:"content"`
	Language         string            `json:"language"`
	Sensitive        bool              `json:"sensitive"`
	SpoilerText      string            `json:"spoiler_text"`
	Tags             []Tag             `json:"tags"`
	MediaAttachments []MediaAttachment `json:"media_attachments"`
	ReblogsCount     Count             `json:"reblogs_count"`
	FavouritesCount  Count             `json:"favourites_count"`
	RepliesCount     Count             `json:"replies_count"`
	Reblogged        bool              `json:"reblogged"`
}

// Account is the author of a status.
type Account struct {
	ID          string `json:"id"`
	Acct        string `json:"acct"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
}

// Tag is a hashtag attached to a status.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MediaAttachment is an image/video/audio attachment on a status.
type MediaAttachment struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SearchResult is the subset of the v2 search response Hype consumes.
type SearchResult struct {
	Statuses []Status `json:"statuses"`
}

// AppCredentials is a registered application credential, persisted per host.
type AppCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ProfileField is a key/value pair shown on the bot's profile page.
type ProfileField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HasMedia reports whether the status carries at least one attachment.
func (s *Status) HasMedia() bool {
	return len(s.MediaAttachments) > 0
}

// FederationURI returns the key used to resolve the status across hosts:
// the canonical URI, falling back to the display URL.
func (s *Status) FederationURI() string {
	if s.URI != "" {
		return s.URI
	}
	return s.URL
}

// CacheKeys returns the identifiers recorded in the seen cache: the status
// id plus the display URL (or URI when no URL is set). Either key matching
// on a later lookup marks the status as seen.
func (s *Status) CacheKeys() []string {
	keys := []string{s.ID}
	if s.URL != "" {
		keys = append(keys, s.URL)
	} else if s.URI != "" {
		keys = append(keys, s.URI)
	}
	return keys
}

// AuthorHandle returns the author's acct (bare "user" for local accounts,
// "user@host" for remote ones).
func (s *Status) AuthorHandle() string {
	return s.Account.Acct
}

// AuthorDomain returns the host suffix of the author handle, or "" for a
// local account.
func (s *Status) AuthorDomain() string {
	if i := strings.LastIndex(s.Account.Acct, "@"); i >= 0 {
		return s.Account.Acct[i+1:]
	}
	return ""
}

// TagNames returns the status's hashtag names, lowercased.
func (s *Status) TagNames() []string {
	if len(s.Tags) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		names = append(names, strings.ToLower(t.Name))
	}
	return names
}

// EngagementTotal returns reblogs + favourites + replies.
func (s *Status) EngagementTotal() int64 {
	return int64(s.ReblogsCount) + int64(s.FavouritesCount) + int64(s.RepliesCount)
}

// Count is an engagement counter that tolerates the encodings seen in the
// wild: JSON numbers, numeric strings, and null. Anything unparsable is 0.
type Count int64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some servers send floats for counters.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			*c = Count(int64(f))
			return nil
		}
		*c = 0
		return nil
	}
	*c = Count(n)
	return nil
}

// Time wraps time.Time with a tolerant decoder: RFC 3339 with or without
// fractional seconds, or null/empty/garbage, which all decode to the zero
// time. Consumers treat the zero time as the Unix epoch.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339Nano, s); err != nil {
			t.Time = time.Time{}
			return nil
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// OrEpoch returns the wrapped time, substituting the Unix epoch when unset.
// A missing created_at therefore decays a post maximally rather than
// exempting it from age decay.
func (t Time) OrEpoch() time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.Time
}

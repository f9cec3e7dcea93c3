// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package profile keeps the bot account's public profile in sync with its
// configuration: the note advertises which instances are being curated, the
// account is flagged as a bot, and configured profile fields are applied.
// The update runs once at startup when enabled.
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/feditrend/hype/internal/mastodon"
)

// Client is the profile-update surface of the publishing-host client.
type Client interface {
	UpdateCredentials(ctx context.Context, note string, bot, discoverable bool,
		fields []mastodon.ProfileField) (*mastodon.Account, error)
}

// Config holds the profile updater settings.
type Config struct {
	// Prefix is the free-form text placed before the instance list in the
	// account note.
	Prefix string

	// Fields maps profile field names to values, shown on the profile page.
	Fields map[string]string

	// Instances is the list of hosts the bot curates from, appended to the
	// note.
	Instances []string
}

// Updater applies the configured profile to the bot account.
type Updater struct {
	client Client
	cfg    Config
	logger zerolog.Logger
}

// New creates an Updater.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(client Client, cfg Config, logger zerolog.Logger) *Updater {
	return &Updater{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "profile").Logger(),
	}
}

// Update pushes the note, bot flag, and fields to the publishing host.
func (u *Updater) Update(ctx context.Context) error {
	note := u.buildNote()
	fields := u.buildFields()

	account, err := u.client.UpdateCredentials(ctx, note, true, true, fields)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	u.logger.Info().Str("account", account.Acct).Msg("profile updated")
	return nil
}

// buildNote joins the prefix with the sorted instance list. Hosts are sorted
// so repeated updates with the same configuration produce the same note.
func (u *Updater) buildNote() string {
	var b strings.Builder
	if u.cfg.Prefix != "" {
		b.WriteString(u.cfg.Prefix)
	}
	if len(u.cfg.Instances) > 0 {
		hosts := make([]string, len(u.cfg.Instances))
		copy(hosts, u.cfg.Instances)
		sort.Strings(hosts)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Currently curating: ")
		b.WriteString(strings.Join(hosts, ", "))
	}
	return b.String()
}

// buildFields returns the configured fields in sorted name order.
func (u *Updater) buildFields() []mastodon.ProfileField {
	if len(u.cfg.Fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(u.cfg.Fields))
	for name := range u.cfg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]mastodon.ProfileField, 0, len(names))
	for _, name := range names {
		fields = append(fields, mastodon.ProfileField{Name: name, Value: u.cfg.Fields[name]})
	}
	return fields
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package mastodon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Registry hands out per-host clients. The first request for a host
// registers an application there and persists the credential under the
// secrets directory; later requests (including across restarts) reuse it.
// The registry is read-mostly: creation happens lazily under a mutex.
type Registry struct {
	mu         sync.Mutex
	clients    map[string]*Client
	secretsDir string
	appName    string
	logger     zerolog.Logger
	options    []Option
}

// NewRegistry creates a registry persisting app credentials in secretsDir.
// Extra options are applied to every client the registry creates.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRegistry(secretsDir, appName string, logger zerolog.Logger, opts ...Option) *Registry {
	return &Registry{
		clients:    make(map[string]*Client),
		secretsDir: secretsDir,
		appName:    appName,
		logger:     logger.With().Str("component", "registry").Logger(),
		options:    opts,
	}
}

// ClientFor returns an unauthenticated client for the given host, creating
// and registering it on first use.
func (r *Registry) ClientFor(ctx context.Context, host string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[host]; ok {
		return c, nil
	}

	opts := append([]Option{WithLogger(r.logger)}, r.options...)
	client := NewClient(host, opts...)

	if _, err := r.ensureAppCredentials(ctx, host, client); err != nil {
		return nil, err
	}

	r.clients[host] = client
	return client, nil
}

// ensureAppCredentials loads the persisted app credential for host, or
// registers a new app and persists the result.
func (r *Registry) ensureAppCredentials(ctx context.Context, host string, client *Client) (*AppCredentials, error) {
	path := r.credentialPath(host)

	if creds, err := loadCredentials(path); err == nil {
		r.logger.Debug().Str("host", host).Msg("app credential already present")
		return creds, nil
	} else if !os.IsNotExist(err) {
		r.logger.Warn().Err(err).Str("host", host).Msg("unreadable app credential, re-registering")
	}

	r.logger.Info().Str("host", host).Msg("registering app")
	creds, err := client.RegisterApp(ctx, r.appName)
	if err != nil {
		return nil, fmt.Errorf("register app on %s: %w", host, err)
	}
	if err := saveCredentials(path, creds); err != nil {
		// Registration succeeded; a persist failure only costs a
		// re-registration after the next restart.
		r.logger.Warn().Err(err).Str("host", host).Msg("could not persist app credential")
	}
	return creds, nil
}

func (r *Registry) credentialPath(host string) string {
	return filepath.Join(r.secretsDir, hostKey(host)+"_clientcred.json")
}

// hostKey reduces a host argument to a filename-safe host name, dropping any
// scheme and path.
func hostKey(host string) string {
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}

func loadCredentials(path string) (*AppCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var creds AppCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("parse %s: incomplete credential", path)
	}
	return &creds, nil
}

func saveCredentials(path string, creds *AppCredentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

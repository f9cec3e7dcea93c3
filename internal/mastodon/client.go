// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package mastodon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// maxTrendingLimit is the largest page the trends API serves.
	maxTrendingLimit = 20

	// defaultTimeout bounds each HTTP request.
	defaultTimeout = 30 * time.Second

	// rateLimitRetries is how many times a 429 is retried with backoff
	// before the request is given up for this cycle.
	rateLimitRetries = 3
)

// Client talks to a single Mastodon host. A zero token makes an
// unauthenticated client suitable for public endpoints (trending statuses).
// Requests are paced through a rate limiter and 429 responses are retried
// with exponential backoff.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token for authenticated endpoints.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger attaches a logger to the client.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit overrides the default request pacing.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client for the given host. Bare host names get an
// https:// scheme prepended.
func NewClient(host string, opts ...Option) *Client {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: defaultTimeout},
		// One request per second with a small burst is well under every
		// mainstream server's default limit of 300 requests per 5 minutes.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL of the host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TrendingStatuses returns the host's currently trending statuses, newest
// weighting first, up to limit entries. The limit is clamped to the API
// maximum of 20.
func (c *Client) TrendingStatuses(ctx context.Context, limit int) ([]Status, error) {
	if limit < 1 || limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var statuses []Status
	if err := c.get(ctx, "/api/v1/trends/statuses", q, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// TimelineLocal returns up to limit statuses from the host's local public
// timeline. Requires authentication on most servers.
func (c *Client) TimelineLocal(ctx context.Context, limit int) ([]Status, error) {
	q := url.Values{
		"local": {"true"},
		"limit": {strconv.Itoa(limit)},
	}
	var statuses []Status
	if err := c.get(ctx, "/api/v1/timelines/public", q, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// StatusReblog boosts the status with the given id through the
// authenticated account. A 404 means the status is not in the host's
// database; see IsNotFound.
func (c *Client) StatusReblog(ctx context.Context, id string) (*Status, error) {
	var boosted Status
	path := "/api/v1/statuses/" + url.PathEscape(id) + "/reblog"
	if err := c.post(ctx, path, nil, &boosted); err != nil {
		return nil, err
	}
	return &boosted, nil
}

// Search runs a v2 search restricted to statuses. With resolve=true the
// host fetches the status from its origin if it is not yet known locally
// (federation); this requires an authenticated token.
func (c *Client) Search(ctx context.Context, query string, resolve bool) (*SearchResult, error) {
	q := url.Values{
		"q":       {query},
		"type":    {"statuses"},
		"resolve": {strconv.FormatBool(resolve)},
	}
	var result SearchResult
	if err := c.get(ctx, "/api/v2/search", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterApp registers a new application on the host and returns its
// credentials. Used once per host; the registry persists the result.
func (c *Client) RegisterApp(ctx context.Context, name string) (*AppCredentials, error) {
	form := url.Values{
		"client_name":   {name},
		"redirect_uris": {"urn:ietf:wg:oauth:2.0:oob"},
		"scopes":        {"read"},
	}
	var creds AppCredentials
	if err := c.post(ctx, "/api/v1/apps", form, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// UpdateCredentials updates the authenticated account's profile.
func (c *Client) UpdateCredentials(ctx context.Context, note string, bot, discoverable bool, fields []ProfileField) (*Account, error) {
	form := url.Values{
		"note":         {note},
		"bot":          {strconv.FormatBool(bot)},
		"discoverable": {strconv.FormatBool(discoverable)},
	}
	for i, f := range fields {
		prefix := "fields_attributes[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[name]", f.Name)
		form.Set(prefix+"[value]", f.Value)
	}
	var account Account
	if err := c.patch(ctx, "/api/v1/accounts/update_credentials", form, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, form, out)
}

func (c *Client) patch(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, form, out)
}

// do executes one API call: pace, request, decode. HTTP 429 is retried with
// exponential backoff up to rateLimitRetries times; every other non-2xx
// status is returned immediately as an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	operation := func() error {
		err := c.doOnce(ctx, method, path, query, form, out)
		if err == nil {
			return nil
		}
		if IsRateLimited(err) {
			c.logger.Warn().Str("path", path).Msg("rate limited, backing off")
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), rateLimitRetries),
		ctx,
	)
	return backoff.Retry(operation, policy)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query, form url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "hype")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(resp.Body),
			Method:     method,
			URL:        u,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, u, err)
	}
	return nil
}

// apiErrorMessage extracts the "error" field servers put in failure bodies.
func apiErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package mastodon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"
)

// newTestClient creates a client pointed at the test server with pacing
// effectively disabled so tests run fast.
func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	}, opts...)
	return NewClient(srv.URL, opts...)
}

func TestTrendingStatusesClampsLimit(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/trends/statuses" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	statuses, err := c.TrendingStatuses(context.Background(), 100)
	if err != nil {
		t.Fatalf("TrendingStatuses() error = %v", err)
	}
	if gotLimit != "20" {
		t.Errorf("limit param = %q, want clamped to 20", gotLimit)
	}
	if len(statuses) != 2 {
		t.Errorf("len(statuses) = %d, want 2", len(statuses))
	}
}

func TestStatusReblogSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/v1/statuses/99/reblog" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id":"99","reblogged":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithToken("sekrit"))
	boosted, err := c.StatusReblog(context.Background(), "99")
	if err != nil {
		t.Fatalf("StatusReblog() error = %v", err)
	}
	if !boosted.Reblogged {
		t.Error("Reblogged = false, want true")
	}
}

func TestNotFoundError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Record not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithToken("t"))
	_, err := c.StatusReblog(context.Background(), "missing")
	if err == nil {
		t.Fatal("StatusReblog() error = nil, want 404")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if IsUnauthorized(err) || IsRateLimited(err) {
		t.Errorf("unexpected classification for %v", err)
	}
}

func TestUnauthorizedCoversForbidden(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := newTestClient(srv)
		_, err := c.Search(context.Background(), "https://a.example/@u/1", true)
		srv.Close()
		if !IsUnauthorized(err) {
			t.Errorf("IsUnauthorized() = false for status %d", code)
		}
	}
}

func TestRateLimitedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.TrendingStatuses(context.Background(), 20); err != nil {
		t.Fatalf("TrendingStatuses() error = %v, want retried success", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.TrendingStatuses(context.Background(), 20); err == nil {
		t.Fatal("TrendingStatuses() error = nil, want 500")
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (no retry for 5xx)", calls.Load())
	}
}

func TestSearchResolveParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "statuses" {
			t.Errorf("type = %q", q.Get("type"))
		}
		if q.Get("resolve") != "true" {
			t.Errorf("resolve = %q", q.Get("resolve"))
		}
		w.Write([]byte(`{"statuses":[{"id":"7"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithToken("t"))
	result, err := c.Search(context.Background(), "https://a.example/@u/7", true)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Statuses) != 1 || result.Statuses[0].ID != "7" {
		t.Errorf("Search() statuses = %+v", result.Statuses)
	}
}

func TestUpdateCredentialsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("bot") != "true" {
			t.Errorf("bot = %q", r.PostForm.Get("bot"))
		}
		if r.PostForm.Get("fields_attributes[0][name]") != "Source" {
			t.Errorf("field name = %q", r.PostForm.Get("fields_attributes[0][name]"))
		}
		w.Write([]byte(`{"id":"me","acct":"hype"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithToken("t"))
	fields := []ProfileField{{Name: "Source", Value: "https://example.org/hype"}}
	account, err := c.UpdateCredentials(context.Background(), "curation bot", true, true, fields)
	if err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}
	if account.Acct != "hype" {
		t.Errorf("account = %+v", account)
	}
}

func TestNewClientNormalizesHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mastodon.example", "https://mastodon.example"},
		{"https://mastodon.example/", "https://mastodon.example"},
		{"http://localhost:3000", "http://localhost:3000"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).BaseURL(); got != tt.want {
			t.Errorf("NewClient(%q).BaseURL() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/feditrend/hype/internal/mastodon"
	"github.com/feditrend/hype/internal/policy"
)

// fakePublishClient scripts the publishing host's responses.
type fakePublishClient struct {
	reblogErr     map[string]error
	searchResult  *mastodon.SearchResult
	searchErr     error
	reblogCalls   []string
	searchQueries []string
}

func (f *fakePublishClient) StatusReblog(_ context.Context, id string) (*mastodon.Status, error) {
	f.reblogCalls = append(f.reblogCalls, id)
	if err := f.reblogErr[id]; err != nil {
		return nil, err
	}
	return &mastodon.Status{ID: id, Reblogged: true}, nil
}

func (f *fakePublishClient) Search(_ context.Context, query string, _ bool) (*mastodon.SearchResult, error) {
	f.searchQueries = append(f.searchQueries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult == nil {
		return &mastodon.SearchResult{}, nil
	}
	return f.searchResult, nil
}

func notFoundErr() error {
	return &mastodon.APIError{StatusCode: 404, Method: "POST", URL: "/reblog"}
}

func TestPublishDirectSuccess(t *testing.T) {
	client := &fakePublishClient{}
	p := NewPublisher(client, false, zerolog.Nop())

	post := &mastodon.Status{ID: "1", URI: "https://a.example/1"}
	outcome := p.Publish(context.Background(), post)
	if !outcome.Published {
		t.Fatalf("Publish() = %+v, want success", outcome)
	}
	if outcome.Post.ID != "1" {
		t.Errorf("outcome post = %q, want original", outcome.Post.ID)
	}
	if len(client.searchQueries) != 0 {
		t.Errorf("search called %d times on direct success", len(client.searchQueries))
	}
}

func TestPublishNotFoundFederationDisabled(t *testing.T) {
	client := &fakePublishClient{reblogErr: map[string]error{"1": notFoundErr()}}
	p := NewPublisher(client, false, zerolog.Nop())

	outcome := p.Publish(context.Background(), &mastodon.Status{ID: "1", URI: "https://a.example/1"})
	if outcome.Published || outcome.Reason != policy.ReasonFederationDisabled {
		t.Errorf("Publish() = %+v, want skipped federation-disabled", outcome)
	}
	if len(client.searchQueries) != 0 {
		t.Error("search called with federation disabled")
	}
}

func TestPublishFederationFallbackSucceeds(t *testing.T) {
	client := &fakePublishClient{
		reblogErr: map[string]error{"remote-1": notFoundErr()},
		searchResult: &mastodon.SearchResult{
			Statuses: []mastodon.Status{{ID: "local-9", URI: "https://a.example/1"}},
		},
	}
	p := NewPublisher(client, true, zerolog.Nop())

	post := &mastodon.Status{ID: "remote-1", URI: "https://a.example/1"}
	outcome := p.Publish(context.Background(), post)
	if !outcome.Published {
		t.Fatalf("Publish() = %+v, want success after resolve", outcome)
	}
	if outcome.Post.ID != "local-9" {
		t.Errorf("outcome post = %q, want federated copy local-9", outcome.Post.ID)
	}
	if len(client.reblogCalls) != 2 {
		t.Errorf("reblog calls = %v, want 2", client.reblogCalls)
	}
	if len(client.searchQueries) != 1 || client.searchQueries[0] != "https://a.example/1" {
		t.Errorf("search queries = %v", client.searchQueries)
	}
}

func TestPublishResolveOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		client *fakePublishClient
		want   policy.Reason
	}{
		{
			"resolve empty",
			&fakePublishClient{reblogErr: map[string]error{"1": notFoundErr()}},
			policy.ReasonResolveEmpty,
		},
		{
			"token scope missing",
			&fakePublishClient{
				reblogErr: map[string]error{"1": notFoundErr()},
				searchErr: &mastodon.APIError{StatusCode: 403},
			},
			policy.ReasonTokenScopeMissing,
		},
		{
			"resolve rejected",
			&fakePublishClient{
				reblogErr: map[string]error{"1": notFoundErr()},
				searchErr: &mastodon.APIError{StatusCode: 422},
			},
			policy.ReasonResolveRejected,
		},
		{
			"reblog after resolve fails",
			&fakePublishClient{
				reblogErr: map[string]error{
					"1":       notFoundErr(),
					"local-2": notFoundErr(),
				},
				searchResult: &mastodon.SearchResult{
					Statuses: []mastodon.Status{{ID: "local-2"}},
				},
			},
			policy.ReasonReblogAfterResolve,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPublisher(tt.client, true, zerolog.Nop())
			post := &mastodon.Status{ID: "1", URI: "https://a.example/1"}
			outcome := p.Publish(context.Background(), post)
			if outcome.Published || outcome.Reason != tt.want {
				t.Errorf("Publish() = %+v, want skipped %s", outcome, tt.want)
			}
		})
	}
}

func TestPublishOtherReblogError(t *testing.T) {
	client := &fakePublishClient{reblogErr: map[string]error{"1": errors.New("boom")}}
	p := NewPublisher(client, true, zerolog.Nop())

	outcome := p.Publish(context.Background(), &mastodon.Status{ID: "1"})
	if outcome.Published || outcome.Reason != policy.ReasonReblogError {
		t.Errorf("Publish() = %+v, want skipped reblog-error", outcome)
	}
	if len(client.searchQueries) != 0 {
		t.Error("search called after non-404 reblog error")
	}
}

func TestPublishMissingURISkipsResolve(t *testing.T) {
	client := &fakePublishClient{reblogErr: map[string]error{"1": notFoundErr()}}
	p := NewPublisher(client, true, zerolog.Nop())

	outcome := p.Publish(context.Background(), &mastodon.Status{ID: "1"})
	if outcome.Published || outcome.Reason != policy.ReasonResolveEmpty {
		t.Errorf("Publish() = %+v, want skipped resolve-empty", outcome)
	}
	if len(client.searchQueries) != 0 {
		t.Error("search called with no URI to resolve")
	}
}

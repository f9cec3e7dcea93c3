// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/feditrend/hype/internal/mastodon"
	"github.com/feditrend/hype/internal/policy"
)

// PublishClient is the authenticated publishing-host surface the publisher
// needs.
type PublishClient interface {
	StatusReblog(ctx context.Context, id string) (*mastodon.Status, error)
	Search(ctx context.Context, query string, resolve bool) (*mastodon.SearchResult, error)
}

// Outcome is the result of one publish attempt: either a successful boost
// carrying the post as stored on the publishing host, or a skip with a
// stable reason code.
type Outcome struct {
	Published bool
	Post      *mastodon.Status
	Reason    policy.Reason
}

func success(post *mastodon.Status) Outcome {
	return Outcome{Published: true, Post: post}
}

func skipped(reason policy.Reason) Outcome {
	return Outcome{Reason: reason}
}

// Publisher boosts candidate posts through the publishing host. A post the
// host does not know yet (trending posts usually live on a remote host) can
// optionally be federated in via search(resolve=true) before retrying.
type Publisher struct {
	client   PublishClient
	federate bool
	logger   zerolog.Logger
}

// NewPublisher creates a Publisher. federate enables the resolve fallback
// for posts unknown to the publishing host.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPublisher(client PublishClient, federate bool, logger zerolog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		federate: federate,
		logger:   logger.With().Str("component", "publisher").Logger(),
	}
}

// Publish attempts to boost the post. The direct reblog is tried first since
// most trending posts are already federated; resolving is a deliberate
// opt-in because it triggers a cross-host fetch on the publishing server.
func (p *Publisher) Publish(ctx context.Context, post *mastodon.Status) Outcome {
	_, err := p.client.StatusReblog(ctx, post.ID)
	if err == nil {
		return success(post)
	}
	if !mastodon.IsNotFound(err) {
		p.logger.Warn().Err(err).Str("status", post.ID).Msg("reblog failed")
		return skipped(policy.ReasonReblogError)
	}

	if !p.federate {
		return skipped(policy.ReasonFederationDisabled)
	}
	return p.federateAndReblog(ctx, post)
}

// federateAndReblog resolves the post onto the publishing host and retries
// the reblog with the local copy's id.
func (p *Publisher) federateAndReblog(ctx context.Context, post *mastodon.Status) Outcome {
	uri := post.FederationURI()
	if uri == "" {
		return skipped(policy.ReasonResolveEmpty)
	}

	result, err := p.client.Search(ctx, uri, true)
	if err != nil {
		if mastodon.IsUnauthorized(err) {
			p.logger.Warn().Str("status", post.ID).
				Msg("resolving search rejected; token likely lacks read:search scope")
			return skipped(policy.ReasonTokenScopeMissing)
		}
		p.logger.Warn().Err(err).Str("status", post.ID).Msg("resolving search failed")
		return skipped(policy.ReasonResolveRejected)
	}
	if len(result.Statuses) == 0 {
		return skipped(policy.ReasonResolveEmpty)
	}

	federated := result.Statuses[0]
	if _, err := p.client.StatusReblog(ctx, federated.ID); err != nil {
		p.logger.Warn().Err(err).Str("status", federated.ID).
			Msg("reblog after resolve failed")
		return skipped(policy.ReasonReblogAfterResolve)
	}
	return success(&federated)
}

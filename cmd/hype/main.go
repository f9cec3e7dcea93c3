// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package main is the entry point for the Hype curation bot.
//
// Hype periodically collects trending posts from a configured set of
// fediverse instances (plus, optionally, the publishing host's own local
// timeline), scores and filters them, and boosts the best candidates from
// a single bot account under strict rate and diversity caps.
//
// # Application Architecture
//
// Startup proceeds in the following order:
//
//  1. Configuration: layered auth/settings documents plus HYPE_ environment
//     overrides (Koanf v2)
//  2. Logging: zerolog, with an optional separate decision-trace channel
//  3. State: the persistent JSON document holding the seen cache and the
//     daily/hourly boost counters
//  4. Mastodon clients: the authenticated publishing-host client and the
//     per-instance registry with persisted app credentials
//  5. Profile update (optional): pushes the configured note and fields once
//  6. Supervisor tree: the scheduler (curation layer) and the Prometheus
//     metrics listener (telemetry layer) under suture supervision
//
// # Configuration
//
// The auth document (auth.yaml) carries the bot account credentials and is
// required. The settings document (config.yaml) and HYPE_-prefixed
// environment variables tune everything else; see the config package.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the running cycle's
// in-flight HTTP calls are canceled, state is already persisted after every
// boost, and the supervisor tree drains within its shutdown timeout.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/feditrend/hype/internal/config"
	"github.com/feditrend/hype/internal/engine"
	"github.com/feditrend/hype/internal/logging"
	"github.com/feditrend/hype/internal/mastodon"
	"github.com/feditrend/hype/internal/metrics"
	"github.com/feditrend/hype/internal/policy"
	"github.com/feditrend/hype/internal/profile"
	"github.com/feditrend/hype/internal/scheduler"
	"github.com/feditrend/hype/internal/scoring"
	"github.com/feditrend/hype/internal/state"
	"github.com/feditrend/hype/internal/supervisor"
)

const appName = "hype"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Init(logging.Config{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		FilePath: cfg.LogfilePath,
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	logging.Info().
		Str("server", cfg.BotAccount.Server).
		Int("subscriptions", len(cfg.SubscribedInstances)).
		Bool("local_timeline", cfg.LocalTimelineEnabled).
		Int("interval_minutes", cfg.Interval).
		Msg("Starting Hype")

	store := state.Load(cfg.StatePath,
		state.WithSeenCacheSize(cfg.SeenCacheSize),
		state.WithLogger(logging.Logger()),
	)

	// Authenticated client for the publishing host. Boosts, the federation
	// fallback, the local timeline, and profile updates all go through it.
	botClient := mastodon.NewClient(cfg.BotAccount.Server,
		mastodon.WithToken(cfg.BotAccount.AccessToken),
		mastodon.WithLogger(logging.Logger()),
	)

	// Unauthenticated per-instance clients for trending reads, with app
	// credentials persisted under the secrets directory.
	registry := mastodon.NewRegistry(cfg.SecretsDir, appName, logging.Logger(),
		mastodon.WithLogger(logging.Logger()))

	eng := buildEngine(cfg, store, botClient, registry)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.ProfileUpdateEnabled {
		updateProfile(ctx, cfg, botClient)
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})

	interval := time.Duration(cfg.Interval) * time.Minute
	tree.AddCurationService(scheduler.New(interval, eng, logging.Logger()))
	logging.Info().Dur("interval", interval).Msg("Scheduler service added")

	if cfg.MetricsEnabled {
		tree.AddTelemetryService(metrics.NewServer(cfg.MetricsListen, logging.Logger()))
		logging.Info().Str("addr", cfg.MetricsListen).Msg("Metrics service added")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Hype stopped gracefully")
}

// buildEngine assembles the per-cycle pipeline from the configuration.
func buildEngine(cfg *config.Config, store *state.Store, botClient *mastodon.Client,
	registry *mastodon.Registry,
) *engine.Engine {
	filter := policy.NewFilter(policy.FilterConfig{
		RequireMedia:           cfg.RequireMedia,
		SkipSensitiveWithoutCW: cfg.SkipSensitiveWithoutCW,
		Languages:              cfg.LanguagesAllowlist,
		UseServerLanguage:      cfg.UseMastodonLanguageDetection,
		MinReblogs:             cfg.MinReblogs,
		MinFavourites:          cfg.MinFavourites,
		MinReplies:             cfg.MinReplies,
	})

	scorer := scoring.New(scoring.Config{
		HashtagScores:         cfg.HashtagScores,
		RelatedHashtags:       cfg.RelatedHashtags,
		PreferMedia:           cfg.PreferMedia,
		SpamEmojiThreshold:    cfg.SpamEmojiThreshold,
		SpamEmojiPenalty:      cfg.SpamEmojiPenalty,
		SpamLinkPenalty:       cfg.SpamLinkPenalty,
		AgeDecayEnabled:       cfg.AgeDecayEnabled,
		AgeDecayHalfLifeHours: cfg.AgeDecayHalfLifeHours,
	})

	publisher := engine.NewPublisher(botClient, cfg.FederateMissingStatuses, logging.Logger())

	// Subscriptions are ordered by host so candidate gathering and the
	// per-source limits behave the same across restarts.
	hosts := make([]string, 0, len(cfg.SubscribedInstances))
	for host := range cfg.SubscribedInstances {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	subs := make([]engine.Subscription, 0, len(hosts))
	boostLimits := make(map[string]int, len(hosts)+1)
	for _, host := range hosts {
		limits := cfg.SubscribedInstances[host]
		subs = append(subs, engine.Subscription{
			Host:       host,
			FetchLimit: limits.FetchLimit,
			BoostLimit: limits.BoostLimit,
		})
		boostLimits[host] = limits.BoostLimit
	}
	boostLimits[engine.LocalOrigin] = cfg.LocalTimelineBoostLimit

	var local engine.LocalTimelineClient
	if cfg.LocalTimelineEnabled {
		local = botClient
	}

	source := engine.NewSource(engine.SourceConfig{
		Subscriptions:      subs,
		LocalEnabled:       cfg.LocalTimelineEnabled,
		LocalFetchLimit:    cfg.LocalTimelineFetchLimit,
		LocalMinEngagement: cfg.LocalTimelineMinEngagement,
	}, clientAdapter(registry), local, logging.Logger())

	return engine.New(engine.Config{
		MaxBoostsPerRun:           cfg.MaxBoostsPerRun,
		DailyCap:                  cfg.DailyPublicCap,
		HourlyCap:                 cfg.PerHourPublicCap,
		AuthorDiversityEnforced:   cfg.AuthorDiversityEnforced,
		MaxBoostsPerAuthorPerDay:  cfg.MaxBoostsPerAuthorPerDay,
		HashtagDiversityEnforced:  cfg.HashtagDiversityEnforced,
		MaxBoostsPerHashtagPerRun: cfg.MaxBoostsPerHashtagPerRun,
		MinScoreThreshold:         cfg.MinScoreThreshold,
		FilteredInstances:         cfg.FilteredInstances,
		SourceBoostLimits:         boostLimits,
	}, store, source, filter, scorer, publisher,
		logging.Logger(), logging.Decisions(cfg.DebugDecisions))
}

// clientAdapter narrows the registry to the source's client lookup.
func clientAdapter(registry *mastodon.Registry) engine.ClientFunc {
	return func(ctx context.Context, host string) (engine.TrendingClient, error) {
		return registry.ClientFor(ctx, host)
	}
}

// updateProfile pushes the configured note and fields once at startup. A
// failure is logged and does not prevent curation from starting.
func updateProfile(ctx context.Context, cfg *config.Config, client *mastodon.Client) {
	hosts := make([]string, 0, len(cfg.SubscribedInstances))
	for host := range cfg.SubscribedInstances {
		hosts = append(hosts, host)
	}

	updater := profile.New(client, profile.Config{
		Prefix:    cfg.ProfilePrefix,
		Fields:    cfg.Fields,
		Instances: hosts,
	}, logging.Logger())

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := updater.Update(updateCtx); err != nil {
		logging.Warn().Err(err).Msg("Profile update failed")
	}
}

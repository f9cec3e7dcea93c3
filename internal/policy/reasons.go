// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

// Package policy decides whether a candidate post is eligible for boosting:
// content filtering (media, sensitivity, language, engagement floors) and the
// skip-reason vocabulary shared by the whole selection pipeline.
package policy

// Reason identifies why a candidate was skipped. Reasons appear in logs and
// as the label on the skip counter metric, so the set is closed and stable.
type Reason string

const (
	// Content filter.
	ReasonRequireMedia    Reason = "require-media"
	ReasonSensitive       Reason = "sensitive"
	ReasonLanguage        Reason = "language"
	ReasonEngagementFloor Reason = "engagement-floor"

	// Diversity and dedup.
	ReasonAlreadySeen  Reason = "already-seen"
	ReasonAuthorLimit  Reason = "author-limit"
	ReasonHashtagLimit Reason = "hashtag-limit"
	ReasonFilteredHost Reason = "filtered-host"

	// Budget.
	ReasonHourCap Reason = "hour-cap"
	ReasonDayCap  Reason = "day-cap"
	ReasonRunCap  Reason = "run-cap"

	// Quality gate.
	ReasonQualityBelowThreshold Reason = "quality-below-threshold"

	// Publisher outcomes.
	ReasonFederationDisabled Reason = "federation-disabled"
	ReasonResolveEmpty       Reason = "resolve-empty"
	ReasonReblogAfterResolve Reason = "reblog-after-resolve"
	ReasonTokenScopeMissing  Reason = "token-scope-missing"
	ReasonResolveRejected    Reason = "resolve-rejected"
	ReasonReblogError        Reason = "reblog-error"
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}

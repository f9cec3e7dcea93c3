// Hype - Automated Fediverse Trend Curation
// Copyright 2026 Feditrend contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feditrend/hype

package mastodon

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from a Mastodon server.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	URL        string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mastodon: %s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mastodon: %s %s: %d", e.Method, e.URL, e.StatusCode)
}

// IsNotFound reports whether err is an API error with HTTP status 404.
// A 404 on reblog means the publishing host does not know the status yet;
// the publisher uses this to decide whether to attempt federation.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is an authentication or authorization
// failure (401 or 403). Search with resolve=true requires an authenticated
// token scope, so this maps to the token-scope-missing skip reason.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

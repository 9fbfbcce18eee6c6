// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package identity

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// TokenFromRequest extracts the bearer token from the Authorization header.
// Returns "" when the header is absent or not a Bearer credential.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Middleware resolves the request's bearer token and publishes the identity
// on the request context. Every request passes through: requests without a
// resolvable identity continue anonymously, and the authorization gate
// decides what anonymous requests may do. Requests with no token never touch
// the store or cache.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := TokenFromRequest(req)
		if token == "" {
			next.ServeHTTP(w, req)
			return
		}

		ri := r.Resolve(req.Context(), token)
		if ri == nil {
			next.ServeHTTP(w, req)
			return
		}

		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), ri)))
	})
}

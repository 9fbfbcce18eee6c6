// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package authz is the authorization gate: the single fail-closed decision
// point between a resolved identity and a protected operation. Identity
// resolution never rejects a request; every Unauthorized, AuthorizationExpired,
// and PermissionDenied outcome originates here.
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/medianest/internal/identity"
)

// Gate outcomes. Exactly one is returned per rejected request; a request that
// passes the gate executes its operation in full.
var (
	// ErrUnauthorized means no identity could be established but the
	// operation required one.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthorizationExpired means an identity was established but its
	// session has passed its expiry.
	ErrAuthorizationExpired = errors.New("authorization expired")

	// ErrPermissionDenied means the identity is valid but lacks one or
	// more required permissions.
	ErrPermissionDenied = errors.New("permission denied")
)

// Gate checks resolved identities against required permissions.
// The zero value is not usable; construct with NewGate.
type Gate struct {
	auditor *Auditor
}

// NewGate creates a gate. auditor may be nil to skip denial audit records.
func NewGate(auditor *Auditor) *Gate {
	return &Gate{auditor: auditor}
}

// Check verifies that the identity on the context holds every required
// permission. The order of checks is fixed: presence, then expiry, then
// permissions — an expired session is reported as expired even when its
// permissions would also have been insufficient. An empty required set
// passes for any caller, anonymous included.
func (g *Gate) Check(ctx context.Context, permissions ...string) error {
	if len(permissions) == 0 {
		decisions.WithLabelValues("pass").Inc()
		return nil
	}

	ri := identity.FromContext(ctx)
	if ri == nil {
		decisions.WithLabelValues("unauthorized").Inc()
		return ErrUnauthorized
	}
	if ri.IsExpired() {
		decisions.WithLabelValues("expired").Inc()
		return ErrAuthorizationExpired
	}
	if !ri.CanAll(permissions) {
		decisions.WithLabelValues("denied").Inc()
		if g.auditor != nil {
			g.auditor.RecordDenial(ctx, ri, ri.Missing(permissions))
		}
		return ErrPermissionDenied
	}

	decisions.WithLabelValues("pass").Inc()
	return nil
}

// Require returns chi middleware enforcing the given permissions. It must be
// mounted after the identity resolution middleware; with no resolution stage
// upstream every request is anonymous and any non-empty requirement rejects.
func (g *Gate) Require(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Check(r.Context(), permissions...); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StatusCode maps a gate outcome to its HTTP status. Non-gate errors map to
// 500 so a miswired handler fails loudly rather than leaking a pass.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAuthorizationExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

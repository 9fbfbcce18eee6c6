// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package identity

import (
	"context"

	"github.com/tomtom215/medianest/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity returns a context carrying the resolved identity. Identities
// live only on the request context; nothing outlives the request.
func WithIdentity(ctx context.Context, ri *models.ResolvedIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, ri)
}

// FromContext returns the resolved identity on the context, or nil when the
// request is anonymous.
func FromContext(ctx context.Context) *models.ResolvedIdentity {
	ri, _ := ctx.Value(identityContextKey).(*models.ResolvedIdentity)
	return ri
}

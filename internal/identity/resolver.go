// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/store"
)

// Resolver turns bearer tokens into resolved identities.
// Safe for concurrent use.
type Resolver struct {
	store store.Store
	cache *Cache
}

// NewResolver creates a resolver backed by the given store and cache.
// cache may be nil to disable caching.
func NewResolver(st store.Store, cache *Cache) *Resolver {
	return &Resolver{store: st, cache: cache}
}

// ResolvePermissions fetches the principal's roles and unions their
// permission lists. A principal with no roles resolves to an empty set, not
// an error.
func ResolvePermissions(ctx context.Context, st store.Store, principalID int64) ([]models.Role, map[string]struct{}, error) {
	roles, err := st.FindRolesByPrincipalID(ctx, principalID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve roles: %w", err)
	}
	return roles, models.PermissionSet(roles), nil
}

// Resolve maps a bearer token to an identity, or to nil (anonymous) when the
// token is empty, unknown, owned by a deleted principal, or the store cannot
// answer. Failures degrade to "no identity" and are logged; resolution never
// decides authorization, so it never produces a denial of its own.
//
// An identity whose session has already expired is still returned (uncached)
// so downstream permission checks can distinguish an expired credential from
// a missing one.
func (r *Resolver) Resolve(ctx context.Context, token string) *models.ResolvedIdentity {
	if token == "" {
		return nil
	}

	if r.cache != nil {
		if ri, ok := r.cache.Get(token); ok {
			return ri
		}
	}

	sess, err := r.store.FindSessionByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			resolutionFailures.Inc()
			logging.Ctx(ctx).Warn().Err(err).Msg("Session lookup failed, treating request as anonymous")
		}
		return nil
	}

	principal, err := r.store.FindPrincipalByID(ctx, sess.PrincipalID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			resolutionFailures.Inc()
			logging.Ctx(ctx).Warn().Err(err).Int64("principal_id", sess.PrincipalID).Msg("Principal lookup failed, treating request as anonymous")
		}
		return nil
	}
	if principal.Deleted {
		return nil
	}

	roles, perms, err := ResolvePermissions(ctx, r.store, principal.ID)
	if err != nil {
		resolutionFailures.Inc()
		logging.Ctx(ctx).Warn().Err(err).Int64("principal_id", principal.ID).Msg("Role resolution failed, treating request as anonymous")
		return nil
	}

	ri := &models.ResolvedIdentity{
		Principal:   *principal,
		Session:     *sess,
		Roles:       roles,
		Permissions: perms,
	}

	resolutions.Inc()
	if r.cache != nil {
		r.cache.Put(ri)
	}
	return ri
}

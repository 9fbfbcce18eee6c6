// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package store provides credential storage for principals, roles, and
// sessions. The auth runtime consumes the Store interface only; three
// backends are provided (in-memory, PostgreSQL, BadgerDB) plus a circuit
// breaker decorator for production resilience.
package store

import (
	"context"
	"errors"

	"github.com/tomtom215/medianest/internal/models"
)

// Store-level errors.
var (
	// ErrNotFound is returned when a referenced principal, role, or
	// session does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned when the backing store cannot be
	// reached. Identity resolution treats it as "no identity", never as
	// an implicit grant.
	ErrUnavailable = errors.New("credential store unavailable")
)

// Store is the credential store gateway consumed by the auth runtime.
// All methods are safe for concurrent use.
type Store interface {
	// FindSessionByToken returns the session holding the given token.
	// Returns ErrNotFound if no session holds it. Expired sessions are
	// still returned; expiry is judged by the caller so the authorization
	// gate can distinguish an expired credential from a missing one.
	FindSessionByToken(ctx context.Context, token string) (*models.Session, error)

	// FindPrincipalByID returns the principal with the given ID.
	// Returns ErrNotFound if absent.
	FindPrincipalByID(ctx context.Context, id int64) (*models.Principal, error)

	// FindPrincipalByName returns the principal with the given name.
	// Returns ErrNotFound if absent.
	FindPrincipalByName(ctx context.Context, name string) (*models.Principal, error)

	// FindRolesByPrincipalID returns the roles assigned to a principal.
	// A principal with no roles yields an empty slice, not an error.
	FindRolesByPrincipalID(ctx context.Context, id int64) ([]models.Role, error)

	// FindRoleByName returns the role with the given name.
	// Returns ErrNotFound if absent.
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)

	// SavePrincipal persists a principal, assigning an ID on insert.
	SavePrincipal(ctx context.Context, p *models.Principal) (*models.Principal, error)

	// SaveRole persists a role, assigning an ID on insert.
	SaveRole(ctx context.Context, r *models.Role) (*models.Role, error)

	// AssignRole links a role to a principal. Assigning twice is a no-op.
	AssignRole(ctx context.Context, principalID, roleID int64) error

	// SaveSession persists a new session, assigning an ID.
	SaveSession(ctx context.Context, s *models.Session) (*models.Session, error)

	// SessionsByPrincipal returns the principal's non-expired sessions
	// sorted by create time ascending (oldest first).
	SessionsByPrincipal(ctx context.Context, principalID int64) ([]models.Session, error)

	// DeleteSessions removes the sessions with the given IDs. Missing IDs
	// are ignored.
	DeleteSessions(ctx context.Context, ids []int64) error

	// DeleteSessionByToken removes the session holding the given token.
	// Deleting an absent token is not an error.
	DeleteSessionByToken(ctx context.Context, token string) error

	// DeleteExpiredSessions removes every expired session and returns the
	// count deleted.
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
)

// BreakerStore wraps a Store with a circuit breaker. When the backing store
// fails repeatedly the circuit opens and calls fail fast with ErrUnavailable
// instead of piling up on a dead database. ErrNotFound is a successful
// outcome, not a failure, and never trips the breaker.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped store directly or inject failing stores;
// they should not try to control the breaker clock.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps inner with a circuit breaker.
// Opens after a 60% failure rate with at least 10 requests in a 1 minute
// window; retries half-open after 30 seconds.
func NewBreakerStore(inner Store) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "credential-store",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Credential store circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Absent records are valid answers from a healthy store.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerStore{inner: inner, cb: cb}
}

// execute runs fn through the breaker, mapping open-circuit and backend
// failures to ErrUnavailable while passing ErrNotFound through untouched.
func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	result, err := s.cb.Execute(fn)
	if err == nil || errors.Is(err, ErrNotFound) {
		return result, err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return nil, errors.Join(ErrUnavailable, err)
}

// FindSessionByToken returns the session holding the given token.
func (s *BreakerStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.FindSessionByToken(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Session), nil
}

// FindPrincipalByID returns the principal with the given ID.
func (s *BreakerStore) FindPrincipalByID(ctx context.Context, id int64) (*models.Principal, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.FindPrincipalByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Principal), nil
}

// FindPrincipalByName returns the principal with the given name.
func (s *BreakerStore) FindPrincipalByName(ctx context.Context, name string) (*models.Principal, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.FindPrincipalByName(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Principal), nil
}

// FindRolesByPrincipalID returns the roles assigned to a principal.
func (s *BreakerStore) FindRolesByPrincipalID(ctx context.Context, id int64) ([]models.Role, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.FindRolesByPrincipalID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Role), nil
}

// FindRoleByName returns the role with the given name.
func (s *BreakerStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.FindRoleByName(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Role), nil
}

// SavePrincipal persists a principal.
func (s *BreakerStore) SavePrincipal(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.SavePrincipal(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Principal), nil
}

// SaveRole persists a role.
func (s *BreakerStore) SaveRole(ctx context.Context, r *models.Role) (*models.Role, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.SaveRole(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Role), nil
}

// AssignRole links a role to a principal.
func (s *BreakerStore) AssignRole(ctx context.Context, principalID, roleID int64) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.AssignRole(ctx, principalID, roleID)
	})
	return err
}

// SaveSession persists a new session.
func (s *BreakerStore) SaveSession(ctx context.Context, sess *models.Session) (*models.Session, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.SaveSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Session), nil
}

// SessionsByPrincipal returns the principal's non-expired sessions.
func (s *BreakerStore) SessionsByPrincipal(ctx context.Context, principalID int64) ([]models.Session, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.SessionsByPrincipal(ctx, principalID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Session), nil
}

// DeleteSessions removes the sessions with the given IDs.
func (s *BreakerStore) DeleteSessions(ctx context.Context, ids []int64) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.DeleteSessions(ctx, ids)
	})
	return err
}

// DeleteSessionByToken removes the session holding the given token.
func (s *BreakerStore) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.DeleteSessionByToken(ctx, token)
	})
	return err
}

// DeleteExpiredSessions removes every expired session.
func (s *BreakerStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.DeleteExpiredSessions(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// compile-time interface check
var _ Store = (*BreakerStore)(nil)

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package auth implements the account and session flows: registration,
// password login, and logout. It sits in front of the session manager and
// credential store; token-to-identity resolution lives in internal/identity.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/session"
	"github.com/tomtom215/medianest/internal/store"
)

// bcryptCost balances login latency against brute-force resistance.
const bcryptCost = 12

var (
	// ErrInvalidCredentials is returned for unknown names, wrong
	// passwords, and deleted accounts alike, so responses do not reveal
	// which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNameTaken is returned when registering a name that already has a
	// live account.
	ErrNameTaken = errors.New("name already registered")
)

// Service implements account registration and the login/logout session flows.
type Service struct {
	store       store.Store
	sessions    *session.Manager
	defaultRole *models.Role
}

// NewService creates an auth service. defaultRole, when non-nil, is assigned
// to every newly registered principal.
func NewService(st store.Store, sessions *session.Manager, defaultRole *models.Role) *Service {
	return &Service{
		store:       st,
		sessions:    sessions,
		defaultRole: defaultRole,
	}
}

// Register creates a principal with a bcrypt password hash and assigns the
// default role. The name must not already be registered.
func (s *Service) Register(ctx context.Context, name, password string) (*models.Principal, error) {
	if _, err := s.store.FindPrincipalByName(ctx, name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check name: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	principal, err := s.store.SavePrincipal(ctx, &models.Principal{
		Name:         name,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("save principal: %w", err)
	}

	if s.defaultRole != nil {
		if err := s.store.AssignRole(ctx, principal.ID, s.defaultRole.ID); err != nil {
			return nil, fmt.Errorf("assign default role: %w", err)
		}
	}

	logging.Ctx(ctx).Info().Int64("principal_id", principal.ID).Str("name", name).Msg("Principal registered")
	return principal, nil
}

// Login verifies the password and issues a session. All credential failures
// collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, name, password string) (*models.Session, error) {
	principal, err := s.store.FindPrincipalByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			loginFailures.Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	if principal.Deleted {
		loginFailures.Inc()
		return nil, ErrInvalidCredentials
	}

	// Timing-safe comparison.
	if bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)) != nil {
		loginFailures.Inc()
		logging.Ctx(ctx).Warn().Str("name", name).Msg("Login failed")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Issue(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	logins.Inc()
	logging.Ctx(ctx).Info().Int64("principal_id", principal.ID).Msg("Login succeeded")
	return sess, nil
}

// Logout revokes the session holding the token. Revoking an absent token
// succeeds, so logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

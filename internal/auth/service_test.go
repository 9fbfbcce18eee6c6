// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/session"
	"github.com/tomtom215/medianest/internal/store"
)

func newTestService(t *testing.T, st store.Store, defaultRole *models.Role) *Service {
	t.Helper()
	manager := session.NewManager(st, session.Config{Duration: time.Hour, MaxSessions: 5}, nil)
	return NewService(st, manager, defaultRole)
}

// seedAccount creates a principal directly with a cheap hash so tests do not
// pay full bcrypt cost per login.
func seedAccount(t *testing.T, st store.Store, name, password string) *models.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	p, err := st.SavePrincipal(context.Background(), &models.Principal{Name: name, PasswordHash: string(hash)})
	if err != nil {
		t.Fatalf("SavePrincipal() error = %v", err)
	}
	return p
}

func TestService_LoginIssuesSession(t *testing.T) {
	st := store.NewMemoryStore()
	p := seedAccount(t, st, "alice", "s3cret")
	svc := newTestService(t, st, nil)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.PrincipalID != p.ID {
		t.Errorf("PrincipalID = %d, want %d", sess.PrincipalID, p.ID)
	}
	if sess.Token == "" {
		t.Error("issued session has no token")
	}

	if _, err := st.FindSessionByToken(ctx, sess.Token); err != nil {
		t.Errorf("issued session not persisted: %v", err)
	}
}

func TestService_LoginRejections(t *testing.T) {
	st := store.NewMemoryStore()
	seedAccount(t, st, "alice", "s3cret")

	deleted := seedAccount(t, st, "bob", "s3cret")
	deleted.Deleted = true
	if _, err := st.SavePrincipal(context.Background(), deleted); err != nil {
		t.Fatalf("SavePrincipal() error = %v", err)
	}

	svc := newTestService(t, st, nil)

	tests := []struct {
		name     string
		account  string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown name", "mallory", "s3cret"},
		{"deleted account", "bob", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.account, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestService_RegisterAndLogin(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	role, err := st.SaveRole(ctx, &models.Role{Name: "viewer", Permissions: []string{"media:get"}})
	if err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}
	svc := newTestService(t, st, role)

	p, err := svc.Register(ctx, "carol", "hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if p.ID == 0 {
		t.Error("registered principal has no ID")
	}
	if p.PasswordHash == "hunter2" {
		t.Error("password stored in clear")
	}

	roles, err := st.FindRolesByPrincipalID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindRolesByPrincipalID() error = %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "viewer" {
		t.Errorf("roles = %v, want the default viewer role", roles)
	}

	if _, err := svc.Login(ctx, "carol", "hunter2"); err != nil {
		t.Errorf("Login() after Register() error = %v", err)
	}

	if _, err := svc.Register(ctx, "carol", "other"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate Register() = %v, want ErrNameTaken", err)
	}
}

func TestService_LogoutIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	seedAccount(t, st, "alice", "s3cret")
	svc := newTestService(t, st, nil)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := st.FindSessionByToken(ctx, sess.Token); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindSessionByToken() after logout = %v, want ErrNotFound", err)
	}
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Errorf("second Logout() error = %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed within burst", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("attempt past burst should be throttled")
	}

	// Another client is not affected.
	if !rl.Allow("10.0.0.2") {
		t.Error("distinct IP should have its own budget")
	}

	rl.Cleanup(-time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("cleanup should reset idle clients")
	}
}

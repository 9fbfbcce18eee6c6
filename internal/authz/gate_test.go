// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/medianest/internal/identity"
	"github.com/tomtom215/medianest/internal/models"
)

func identityWith(perms []string, expire time.Time) *models.ResolvedIdentity {
	role := models.Role{ID: 1, Name: "test", Permissions: perms}
	return &models.ResolvedIdentity{
		Principal:   models.Principal{ID: 1, Name: "alice"},
		Session:     models.Session{ID: 1, PrincipalID: 1, Token: "tok", CreateTime: time.Now().Add(-time.Minute), ExpireTime: expire},
		Roles:       []models.Role{role},
		Permissions: models.PermissionSet([]models.Role{role}),
	}
}

func TestGate_Check(t *testing.T) {
	live := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		identity *models.ResolvedIdentity
		required []string
		want     error
	}{
		{"no requirement anonymous", nil, nil, nil},
		{"no requirement authenticated", identityWith([]string{"media:get"}, live), nil, nil},
		{"anonymous rejected", nil, []string{"media:get"}, ErrUnauthorized},
		{"holder passes", identityWith([]string{"media:get"}, live), []string{"media:get"}, nil},
		{"missing permission", identityWith([]string{"media:get"}, live), []string{"media:delete"}, ErrPermissionDenied},
		{"partial set rejected", identityWith([]string{"media:get"}, live), []string{"media:get", "media:delete"}, ErrPermissionDenied},
		{"no roles rejected", identityWith(nil, live), []string{"media:get"}, ErrPermissionDenied},
	}

	g := NewGate(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.identity != nil {
				ctx = identity.WithIdentity(ctx, tt.identity)
			}
			if err := g.Check(ctx, tt.required...); !errors.Is(err, tt.want) {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGate_ExpiryBeforePermissions(t *testing.T) {
	// A just-expired session is reported as expired even when the
	// permission check would also fail, and even when it would pass.
	expired := time.Now().Add(-time.Millisecond)
	g := NewGate(nil)

	for _, required := range [][]string{
		{"media:get"},    // would pass if live
		{"media:delete"}, // would be denied if live
	} {
		ctx := identity.WithIdentity(context.Background(), identityWith([]string{"media:get"}, expired))
		err := g.Check(ctx, required...)
		if !errors.Is(err, ErrAuthorizationExpired) {
			t.Errorf("Check(%v) = %v, want ErrAuthorizationExpired", required, err)
		}
	}
}

func TestGate_DenialIsAudited(t *testing.T) {
	auditor := NewAuditor(8)
	g := NewGate(auditor)

	ctx := identity.WithIdentity(context.Background(), identityWith([]string{"media:get"}, time.Now().Add(time.Hour)))
	if err := g.Check(ctx, "media:delete", "media:save"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Check() = %v, want ErrPermissionDenied", err)
	}

	select {
	case event := <-auditor.events:
		if event.ID == "" {
			t.Error("audit event has no ID")
		}
		if event.PrincipalID != 1 {
			t.Errorf("PrincipalID = %d, want 1", event.PrincipalID)
		}
		if len(event.Missing) != 2 || event.Missing[0] != "media:delete" || event.Missing[1] != "media:save" {
			t.Errorf("Missing = %v, want [media:delete media:save]", event.Missing)
		}
	default:
		t.Fatal("denial produced no audit event")
	}
}

func TestGate_FullQueueStillDenies(t *testing.T) {
	auditor := NewAuditor(1)
	g := NewGate(auditor)
	ctx := identity.WithIdentity(context.Background(), identityWith(nil, time.Now().Add(time.Hour)))

	for i := 0; i < 5; i++ {
		if err := g.Check(ctx, "media:get"); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Check() %d = %v, want ErrPermissionDenied even with a full audit queue", i, err)
		}
	}
}

func TestRequire_StatusCodes(t *testing.T) {
	live := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		identity *models.ResolvedIdentity
		required []string
		want     int
	}{
		{"anonymous", nil, []string{"media:get"}, http.StatusUnauthorized},
		{"expired", identityWith([]string{"media:get"}, time.Now().Add(-time.Second)), []string{"media:get"}, http.StatusUnauthorized},
		{"denied", identityWith(nil, live), []string{"media:get"}, http.StatusForbidden},
		{"pass", identityWith([]string{"media:get"}, live), []string{"media:get"}, http.StatusOK},
		{"open route", nil, nil, http.StatusOK},
	}

	g := NewGate(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var executed bool
			handler := g.Require(tt.required...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				executed = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
			if tt.identity != nil {
				req = req.WithContext(identity.WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if executed != (tt.want == http.StatusOK) {
				t.Errorf("handler executed = %v with status %d", executed, rec.Code)
			}
			if tt.want != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestStatusCode_UnknownError(t *testing.T) {
	if got := StatusCode(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", got)
	}
}

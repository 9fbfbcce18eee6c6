// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/store"
)

// spyStore counts session lookups so tests can assert store traffic.
type spyStore struct {
	store.Store
	lookups atomic.Int32
}

func (s *spyStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	s.lookups.Add(1)
	return s.Store.FindSessionByToken(ctx, token)
}

// unavailableStore fails every call with ErrUnavailable.
type unavailableStore struct {
	store.Store
}

func (s *unavailableStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	return nil, store.ErrUnavailable
}

// seed creates a principal with one role and one live session, returning the
// session token.
func seed(t *testing.T, st store.Store, perms []string, expire time.Time) (*models.Principal, string) {
	t.Helper()
	ctx := context.Background()

	p, err := st.SavePrincipal(ctx, &models.Principal{Name: "alice", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("SavePrincipal() error = %v", err)
	}
	role, err := st.SaveRole(ctx, &models.Role{Name: "librarian", Permissions: perms})
	if err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}
	if err := st.AssignRole(ctx, p.ID, role.ID); err != nil {
		t.Fatalf("AssignRole() error = %v", err)
	}
	sess, err := st.SaveSession(ctx, &models.Session{
		PrincipalID: p.ID,
		Token:       "tok-" + p.Name,
		CreateTime:  time.Now(),
		ExpireTime:  expire,
	})
	if err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	return p, sess.Token
}

func TestResolver_Resolve(t *testing.T) {
	st := store.NewMemoryStore()
	p, token := seed(t, st, []string{"media:get", "media:save"}, time.Now().Add(time.Hour))
	r := NewResolver(st, NewCache())

	ri := r.Resolve(context.Background(), token)
	if ri == nil {
		t.Fatal("Resolve() = nil, want identity")
	}
	if ri.Principal.ID != p.ID {
		t.Errorf("Principal.ID = %d, want %d", ri.Principal.ID, p.ID)
	}
	if !ri.Can("media:get") || !ri.Can("media:save") {
		t.Errorf("permissions = %v, want media:get and media:save", ri.Permissions)
	}
	if ri.Can("media:delete") {
		t.Error("identity holds a permission no role grants")
	}
	if ri.IsExpired() {
		t.Error("live session resolved as expired")
	}
}

func TestResolver_UnknownTokenIsAnonymous(t *testing.T) {
	r := NewResolver(store.NewMemoryStore(), NewCache())
	if ri := r.Resolve(context.Background(), "no-such-token"); ri != nil {
		t.Errorf("Resolve() = %+v, want nil", ri)
	}
}

func TestResolver_StoreFailureIsAnonymous(t *testing.T) {
	r := NewResolver(&unavailableStore{Store: store.NewMemoryStore()}, nil)
	if ri := r.Resolve(context.Background(), "any"); ri != nil {
		t.Errorf("Resolve() = %+v, want nil when the store is down", ri)
	}
}

func TestResolver_DeletedPrincipalIsAnonymous(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	p, token := seed(t, st, []string{"media:get"}, time.Now().Add(time.Hour))

	p.Deleted = true
	if _, err := st.SavePrincipal(ctx, p); err != nil {
		t.Fatalf("SavePrincipal() error = %v", err)
	}

	r := NewResolver(st, NewCache())
	if ri := r.Resolve(ctx, token); ri != nil {
		t.Errorf("Resolve() = %+v, want nil for a deleted principal", ri)
	}
}

func TestResolver_ExpiredSessionResolvesUncached(t *testing.T) {
	st := store.NewMemoryStore()
	_, token := seed(t, st, []string{"media:get"}, time.Now().Add(-time.Minute))
	cache := NewCache()
	r := NewResolver(st, cache)

	ri := r.Resolve(context.Background(), token)
	if ri == nil {
		t.Fatal("expired session should still resolve to an identity")
	}
	if !ri.IsExpired() {
		t.Error("resolved identity should report expiry")
	}
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries, expired identities must not be cached", cache.Len())
	}
}

func TestResolver_CacheShortCircuitsStore(t *testing.T) {
	mem := store.NewMemoryStore()
	_, token := seed(t, mem, []string{"media:get"}, time.Now().Add(time.Hour))
	spy := &spyStore{Store: mem}
	r := NewResolver(spy, NewCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ri := r.Resolve(ctx, token); ri == nil {
			t.Fatalf("Resolve() %d = nil", i)
		}
	}
	if got := spy.lookups.Load(); got != 1 {
		t.Errorf("store lookups = %d, want 1 (cache should serve repeats)", got)
	}
}

func TestResolver_InvalidationForcesReresolve(t *testing.T) {
	mem := store.NewMemoryStore()
	_, token := seed(t, mem, []string{"media:get"}, time.Now().Add(time.Hour))
	cache := NewCache()
	r := NewResolver(mem, cache)
	ctx := context.Background()

	if ri := r.Resolve(ctx, token); ri == nil {
		t.Fatal("initial Resolve() = nil")
	}

	// Revocation deletes the session and invalidates the cache; the token
	// must stop resolving immediately, not after the cache entry ages out.
	if err := mem.DeleteSessionByToken(ctx, token); err != nil {
		t.Fatalf("DeleteSessionByToken() error = %v", err)
	}
	cache.InvalidateAll()

	if ri := r.Resolve(ctx, token); ri != nil {
		t.Errorf("Resolve() after revocation = %+v, want nil", ri)
	}
}

func TestResolver_InvalidationReflectsPermissionChange(t *testing.T) {
	mem := store.NewMemoryStore()
	_, token := seed(t, mem, []string{"media:get"}, time.Now().Add(time.Hour))
	cache := NewCache()
	r := NewResolver(mem, cache)
	ctx := context.Background()

	ri := r.Resolve(ctx, token)
	if ri == nil {
		t.Fatal("initial Resolve() = nil")
	}
	if ri.Can("media:delete") {
		t.Fatal("identity holds media:delete before the role grants it")
	}

	role, err := mem.FindRoleByName(ctx, "librarian")
	if err != nil {
		t.Fatalf("FindRoleByName() error = %v", err)
	}
	role.Permissions = append(role.Permissions, "media:delete")
	if _, err := mem.SaveRole(ctx, role); err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}

	// Without invalidation the cached identity still serves the old set.
	if ri := r.Resolve(ctx, token); ri.Can("media:delete") {
		t.Error("cached identity picked up the role change without invalidation")
	}

	cache.InvalidateAll()

	ri = r.Resolve(ctx, token)
	if ri == nil {
		t.Fatal("Resolve() after invalidation = nil")
	}
	if !ri.Can("media:delete") {
		t.Errorf("permissions after invalidation = %v, want media:delete included", ri.Permissions)
	}
}

func TestMiddleware_PublishesIdentity(t *testing.T) {
	st := store.NewMemoryStore()
	p, token := seed(t, st, []string{"media:get"}, time.Now().Add(time.Hour))
	r := NewResolver(st, NewCache())

	var seen *models.ResolvedIdentity
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seen = FromContext(req.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil {
		t.Fatal("handler saw no identity")
	}
	if seen.Principal.ID != p.ID {
		t.Errorf("Principal.ID = %d, want %d", seen.Principal.ID, p.ID)
	}
}

func TestMiddleware_NoTokenSkipsStore(t *testing.T) {
	spy := &spyStore{Store: store.NewMemoryStore()}
	r := NewResolver(spy, NewCache())

	var called bool
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
		if FromContext(req.Context()) != nil {
			t.Error("anonymous request carries an identity")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/media", nil))

	if !called {
		t.Fatal("middleware must pass anonymous requests through")
	}
	if got := spy.lookups.Load(); got != 0 {
		t.Errorf("store lookups = %d, want 0 for tokenless requests", got)
	}
}

func TestMiddleware_MalformedHeaderIsAnonymous(t *testing.T) {
	r := NewResolver(store.NewMemoryStore(), NewCache())

	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if FromContext(req.Context()) != nil {
			t.Error("malformed credential resolved to an identity")
		}
	}))

	for _, header := range []string{"Basic dXNlcjpwYXNz", "bearer lowercase", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"absent", "", ""},
		{"bearer", "Bearer abc123", "abc123"},
		{"bearer with padding", "Bearer   abc123", "abc123"},
		{"basic", "Basic dXNlcjpwYXNz", ""},
		{"lowercase scheme", "bearer abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(req); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

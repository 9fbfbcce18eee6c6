// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package auth

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/medianest/internal/identity"
	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/store"
)

// Handlers exposes the auth flows over HTTP.
type Handlers struct {
	service *Service
	store   store.Store
	limiter *RateLimiter
}

// NewHandlers creates the auth HTTP handlers. limiter may be nil to disable
// login throttling (tests).
func NewHandlers(service *Service, st store.Store, limiter *RateLimiter) *Handlers {
	return &Handlers{
		service: service,
		store:   st,
		limiter: limiter,
	}
}

// Routes mounts the auth endpoints. The identity resolution middleware runs
// upstream of this router, so /me and /sessions see resolved identities.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
	r.Get("/sessions", h.Sessions)
	return r
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string    `json:"token"`
	ExpireTime time.Time `json:"expire_time"`
}

// Login verifies credentials and returns a bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		writeJSONError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "name and password are required")
		return
	}

	sess, err := h.service.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Login handler failed")
		writeJSONError(w, http.StatusServiceUnavailable, "login unavailable")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:      sess.Token,
		ExpireTime: sess.ExpireTime,
	})
}

// Logout revokes the bearer token on the request. Succeeds even when the
// token is already gone.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := identity.TokenFromRequest(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "no credential presented")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Logout handler failed")
		writeJSONError(w, http.StatusServiceUnavailable, "logout unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Principal   models.Principal `json:"principal"`
	Roles       []models.Role    `json:"roles"`
	Permissions []string         `json:"permissions"`
	ExpireTime  time.Time        `json:"expire_time"`
}

// Me returns the caller's resolved identity.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ri := identity.FromContext(r.Context())
	if ri == nil || ri.IsExpired() {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	perms := make([]string, 0, len(ri.Permissions))
	for p := range ri.Permissions {
		perms = append(perms, p)
	}

	writeJSON(w, http.StatusOK, meResponse{
		Principal:   ri.Principal,
		Roles:       ri.Roles,
		Permissions: perms,
		ExpireTime:  ri.Session.ExpireTime,
	})
}

type sessionInfo struct {
	ID         int64     `json:"id"`
	CreateTime time.Time `json:"create_time"`
	ExpireTime time.Time `json:"expire_time"`
	Current    bool      `json:"current"`
}

// Sessions lists the caller's live sessions, oldest first. Tokens are never
// returned; the caller's own session is flagged instead.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	ri := identity.FromContext(r.Context())
	if ri == nil || ri.IsExpired() {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.store.SessionsByPrincipal(r.Context(), ri.Principal.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Session listing failed")
		writeJSONError(w, http.StatusServiceUnavailable, "session listing unavailable")
		return
	}

	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo{
			ID:         sess.ID,
			CreateTime: sess.CreateTime,
			ExpireTime: sess.ExpireTime,
			Current:    sess.ID == ri.Session.ID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

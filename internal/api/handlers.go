// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/store"
)

// Health reports liveness plus credential-store reachability. The store has
// no ping; a lookup for an ID that cannot exist serves as one, with
// ErrNotFound as the healthy answer.
func (rt *Router) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if _, err := rt.store.FindPrincipalByID(r.Context(), 0); err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check store probe failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{"status": status})
}

// The media/tag/comment handlers below are placeholders: the routes exist to
// carry their permission requirements, and the business logic lands in a
// separate change.
// TODO: implement media persistence once the library schema is settled.

func (rt *Router) ListMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func (rt *Router) GetMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func (rt *Router) SaveMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func (rt *Router) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func (rt *Router) TagMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func (rt *Router) CommentMedia(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

func notImplemented(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "not implemented"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(v)
}

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package api assembles the HTTP surface: the middleware chain, the auth
// endpoints, and the protected media routes. Middleware order is fixed by
// construction — identity resolution always runs before any authorization
// gate, and the gate always runs before the handler.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/medianest/internal/auth"
	"github.com/tomtom215/medianest/internal/authz"
	"github.com/tomtom215/medianest/internal/identity"
	"github.com/tomtom215/medianest/internal/middleware"
	"github.com/tomtom215/medianest/internal/store"
)

// Permissions enforced by the media routes.
const (
	PermMediaGet    = "media:get"
	PermMediaSave   = "media:save"
	PermMediaDelete = "media:delete"
	PermTagSave     = "tag:save"
	PermCommentSave = "comment:save"
)

// Config holds the router's HTTP policy knobs.
type Config struct {
	CORSAllowedOrigins []string

	// RateLimit caps requests per IP per RateLimitWindow on the API
	// routes. Zero disables.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Router wires middleware and handlers into the served http.Handler.
type Router struct {
	config   Config
	resolver *identity.Resolver
	gate     *authz.Gate
	auth     *auth.Handlers
	store    store.Store
}

// NewRouter creates the router. All collaborators are required.
func NewRouter(config Config, resolver *identity.Resolver, gate *authz.Gate, authHandlers *auth.Handlers, st store.Store) *Router {
	return &Router{
		config:   config,
		resolver: resolver,
		gate:     gate,
		auth:     authHandlers,
		store:    st,
	}
}

// Setup builds the handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Prometheus)
	r.Use(rt.resolver.Middleware)

	// Anonymous surface.
	r.Get("/health", rt.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if rt.config.RateLimit > 0 {
			r.Use(httprate.Limit(rt.config.RateLimit, rt.config.RateLimitWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}

		r.Mount("/auth", rt.auth.Routes())

		// Media-library routes. Each declares its required permissions;
		// handlers never re-check.
		r.Route("/media", func(r chi.Router) {
			r.With(rt.gate.Require(PermMediaGet)).Get("/", rt.ListMedia)
			r.With(rt.gate.Require(PermMediaGet)).Get("/{id}", rt.GetMedia)
			r.With(rt.gate.Require(PermMediaSave)).Post("/", rt.SaveMedia)
			r.With(rt.gate.Require(PermMediaSave)).Put("/{id}", rt.SaveMedia)
			r.With(rt.gate.Require(PermMediaDelete)).Delete("/{id}", rt.DeleteMedia)

			r.With(rt.gate.Require(PermMediaGet, PermTagSave)).Post("/{id}/tags", rt.TagMedia)
			r.With(rt.gate.Require(PermMediaGet, PermCommentSave)).Post("/{id}/comments", rt.CommentMedia)
		})
	})

	return r
}

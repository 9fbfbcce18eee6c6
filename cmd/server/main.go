// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package main is the entry point for the MediaNest server.
//
// Startup order: configuration, logging, credential store (with migrations
// for postgres), the auth runtime (identity cache, resolver, session
// manager, authorization gate), then the supervisor tree running the
// background workers and the HTTP server. SIGINT and SIGTERM trigger a
// graceful shutdown through the tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/medianest/internal/api"
	"github.com/tomtom215/medianest/internal/auth"
	"github.com/tomtom215/medianest/internal/authz"
	"github.com/tomtom215/medianest/internal/config"
	"github.com/tomtom215/medianest/internal/identity"
	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
	"github.com/tomtom215/medianest/internal/session"
	"github.com/tomtom215/medianest/internal/store"
	"github.com/tomtom215/medianest/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet; the default logger will do.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().
		Str("store_backend", cfg.Store.Backend).
		Str("addr", cfg.Server.Addr()).
		Dur("session_duration", cfg.Auth.SessionDuration).
		Int("max_sessions", cfg.Auth.MaxSessions).
		Msg("Starting MediaNest")

	st, cleanup, err := buildStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize credential store")
	}
	defer cleanup()

	cache := identity.NewCache()
	resolver := identity.NewResolver(st, cache)
	manager := session.NewManager(st, session.Config{
		Duration:    cfg.Auth.SessionDuration,
		MaxSessions: cfg.Auth.MaxSessions,
	}, cache)
	reaper := session.NewReaper(st, cfg.Auth.ReapInterval, cache)

	auditor := authz.NewAuditor(256)
	gate := authz.NewGate(auditor)

	svc := auth.NewService(st, manager, defaultRole(cfg, st))
	limiter := auth.NewRateLimiter(cfg.Auth.LoginBurst, cfg.Auth.LoginWindow)
	handlers := auth.NewHandlers(svc, st, limiter)

	router := api.NewRouter(api.Config{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimit:          cfg.Server.RateLimit,
		RateLimitWindow:    time.Minute,
	}, resolver, gate, handlers, st)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)
	tree.AddWorker(manager)
	tree.AddWorker(reaper)
	tree.AddWorker(auditor)
	tree.AddWorker(&cacheJanitor{cache: cache, interval: 10 * time.Minute})
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, stuck := range report {
			logging.Warn().Str("service", fmt.Sprint(stuck.Service)).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Shutdown complete")
}

// buildStore opens the configured backend and applies the circuit breaker.
// The returned cleanup releases backend resources.
func buildStore(cfg *config.Config) (store.Store, func(), error) {
	var (
		st      store.Store
		cleanup = func() {}
	)

	switch cfg.Store.Backend {
	case "memory":
		logging.Warn().Msg("Using in-memory credential store, sessions will not survive restarts")
		st = store.NewMemoryStore()

	case "postgres":
		if err := store.RunMigrations(cfg.Store.PostgresDSN); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		pg, err := store.OpenPostgres(context.Background(), cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		st = pg
		cleanup = func() {
			if err := pg.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing postgres store")
			}
		}

	case "badger":
		opts := badger.DefaultOptions(cfg.Store.BadgerPath).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		bs, err := store.NewBadgerStore(db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("init badger store: %w", err)
		}
		st = bs
		cleanup = func() {
			if err := bs.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing badger store")
			}
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing badger database")
			}
		}

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.CircuitBreaker {
		st = store.NewBreakerStore(st)
	}
	return st, cleanup, nil
}

// defaultRole resolves the configured default role, or nil when none is
// configured or the role does not exist yet.
func defaultRole(cfg *config.Config, st store.Store) *models.Role {
	if cfg.Auth.DefaultRole == "" {
		return nil
	}
	role, err := st.FindRoleByName(context.Background(), cfg.Auth.DefaultRole)
	if err != nil {
		logging.Warn().Err(err).Str("role", cfg.Auth.DefaultRole).
			Msg("Default role not found, new registrations get no role")
		return nil
	}
	return role
}

// cacheJanitor runs the identity cache's expired-entry sweep as a supervised
// service.
type cacheJanitor struct {
	cache    *identity.Cache
	interval time.Duration
}

func (j *cacheJanitor) Serve(ctx context.Context) error {
	j.cache.Janitor(ctx, j.interval)
	return ctx.Err()
}

func (j *cacheJanitor) String() string { return "identity-cache-janitor" }

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sessionsIssued counts successfully issued sessions.
	sessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_sessions_issued_total",
		Help: "Total number of sessions issued",
	})

	// sessionsEvicted counts sessions removed by the bounding worker.
	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_sessions_evicted_total",
		Help: "Total number of sessions evicted by the per-principal bound",
	})

	// sessionsReaped counts expired sessions removed by the reaper.
	sessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_sessions_reaped_total",
		Help: "Total number of expired sessions reaped",
	})

	// evictionFailures counts failed eviction passes.
	evictionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_session_eviction_failures_total",
		Help: "Total number of failed session eviction passes",
	})
)

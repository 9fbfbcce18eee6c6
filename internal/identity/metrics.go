// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_identity_resolutions_total",
		Help: "Bearer tokens successfully resolved into identities",
	})

	resolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_identity_resolution_failures_total",
		Help: "Resolutions degraded to anonymous by store failures",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_identity_cache_hits_total",
		Help: "Identity cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_identity_cache_misses_total",
		Help: "Identity cache misses, expired entries included",
	})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_identity_cache_invalidations_total",
		Help: "Full identity cache invalidations",
	})
)

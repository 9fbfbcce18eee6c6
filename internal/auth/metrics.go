// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_logins_total",
		Help: "Successful logins",
	})

	loginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_login_failures_total",
		Help: "Logins rejected for bad credentials",
	})
)

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medianest_authz_decisions_total",
		Help: "Gate decisions by outcome (pass, unauthorized, expired, denied)",
	}, []string{"outcome"})

	auditRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_authz_audit_events_total",
		Help: "Denial audit events written to the log",
	})

	auditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medianest_authz_audit_events_dropped_total",
		Help: "Denial audit events dropped because the queue was full",
	})
)

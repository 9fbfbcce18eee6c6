// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package session

import (
	"context"
	"time"

	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/store"
)

// Reaper periodically deletes expired sessions from the credential store.
// Expired sessions are already invisible to resolution; reaping keeps the
// store from accumulating dead rows.
type Reaper struct {
	store       store.Store
	interval    time.Duration
	invalidator Invalidator
}

// NewReaper creates a reaper that runs every interval.
// invalidator may be nil.
func NewReaper(st store.Store, interval time.Duration, invalidator Invalidator) *Reaper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reaper{
		store:       st,
		interval:    interval,
		invalidator: invalidator,
	}
}

// ReapOnce deletes all currently expired sessions and returns the count.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	count, err := r.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		sessionsReaped.Add(float64(count))
		if r.invalidator != nil {
			r.invalidator.InvalidateAll()
		}
	}
	return count, nil
}

// Serve implements suture.Service. Reap failures are logged and retried on
// the next tick.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := r.ReapOnce(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Expired session reap failed")
				continue
			}
			if count > 0 {
				logging.Debug().Int("reaped", count).Msg("Reaped expired sessions")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (r *Reaper) String() string {
	return "session-reaper"
}

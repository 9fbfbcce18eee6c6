// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package authz

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/medianest/internal/logging"
	"github.com/tomtom215/medianest/internal/models"
)

// DenialEvent is the audit record emitted when the gate rejects a valid
// identity for missing permissions.
type DenialEvent struct {
	ID            string    `json:"id"`
	Time          time.Time `json:"time"`
	PrincipalID   int64     `json:"principal_id"`
	PrincipalName string    `json:"principal_name"`
	SessionID     int64     `json:"session_id"`
	Missing       []string  `json:"missing_permissions"`
	RequestID     string    `json:"request_id,omitempty"`
}

// Auditor records permission denials asynchronously so the rejection path
// never blocks on audit I/O. Events that cannot be queued are dropped and
// counted; the denial itself is enforced regardless.
type Auditor struct {
	events chan DenialEvent
}

// NewAuditor creates an auditor with the given queue depth.
func NewAuditor(depth int) *Auditor {
	if depth <= 0 {
		depth = 256
	}
	return &Auditor{
		events: make(chan DenialEvent, depth),
	}
}

// RecordDenial queues a denial audit event. Non-blocking.
func (a *Auditor) RecordDenial(ctx context.Context, ri *models.ResolvedIdentity, missing []string) {
	event := DenialEvent{
		ID:            uuid.NewString(),
		Time:          time.Now(),
		PrincipalID:   ri.Principal.ID,
		PrincipalName: ri.Principal.Name,
		SessionID:     ri.Session.ID,
		Missing:       missing,
		RequestID:     logging.RequestIDFromContext(ctx),
	}

	select {
	case a.events <- event:
	default:
		auditDropped.Inc()
	}
}

// Serve implements suture.Service. It drains queued denial events into the
// structured log until the context is canceled.
func (a *Auditor) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-a.events:
			a.emit(event)
		}
	}
}

// Flush synchronously drains whatever is currently queued. For tests and
// shutdown.
func (a *Auditor) Flush() {
	for {
		select {
		case event := <-a.events:
			a.emit(event)
		default:
			return
		}
	}
}

func (a *Auditor) emit(event DenialEvent) {
	logging.Warn().
		Str("audit_event_id", event.ID).
		Int64("principal_id", event.PrincipalID).
		Str("principal_name", event.PrincipalName).
		Int64("session_id", event.SessionID).
		Strs("missing_permissions", event.Missing).
		Str("request_id", event.RequestID).
		Time("denied_at", event.Time).
		Msg("Permission denied")
	auditRecorded.Inc()
}

// String implements fmt.Stringer for supervisor logging.
func (a *Auditor) String() string {
	return "authz-auditor"
}

// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package models

import "time"

// Session binds an opaque bearer token to a principal with an expiry.
// A principal may own many sessions at once; the session manager converges
// the count toward the configured bound.
type Session struct {
	// ID is the unique session identifier.
	ID int64 `json:"id"`

	// PrincipalID is the owning principal.
	PrincipalID int64 `json:"principal_id"`

	// Token is the opaque bearer token presented on requests.
	// Unique among non-expired sessions.
	Token string `json:"token"`

	// CreateTime is when the session was issued.
	CreateTime time.Time `json:"create_time"`

	// ExpireTime is when the session stops being valid.
	ExpireTime time.Time `json:"expire_time"`
}

// IsExpired returns true if the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpireTime)
}

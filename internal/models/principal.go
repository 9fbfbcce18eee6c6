// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package models defines the record types shared by the authentication and
// authorization runtime: principals, roles, sessions, and the request-scoped
// resolved identity derived from them.
package models

// Principal is an authenticated user account.
// Records are owned by the credential store; this runtime reads them.
type Principal struct {
	// ID is the unique principal identifier.
	ID int64 `json:"id"`

	// Name is the display/login name.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the principal's password.
	// Never serialized to clients.
	PasswordHash string `json:"-"`

	// Deleted marks a soft-deleted account. Soft-deleted principals
	// cannot resolve to an identity.
	Deleted bool `json:"deleted,omitempty"`
}

// Role is a named bundle of permission strings assignable to principals.
type Role struct {
	// ID is the unique role identifier.
	ID int64 `json:"id"`

	// Name is the role name, e.g. "admin" or "viewer".
	Name string `json:"name"`

	// Description explains what the role is for.
	Description string `json:"description,omitempty"`

	// Permissions is the set of permission strings the role grants.
	// Order is irrelevant; duplicates carry no meaning.
	Permissions []string `json:"permissions"`
}

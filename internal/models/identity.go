// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package models

// ResolvedIdentity is the in-memory result of resolving a bearer token into a
// principal, its session, its roles, and the union of its role permissions.
// It is ephemeral: built during identity resolution, held on the request
// context for one request, cached keyed by token, never persisted.
type ResolvedIdentity struct {
	// Principal is a snapshot of the account at resolution time.
	Principal Principal `json:"principal"`

	// Session is the session record the bearer token matched.
	Session Session `json:"session"`

	// Roles are the role records assigned at resolution time.
	Roles []Role `json:"roles"`

	// Permissions is the union of the permission sets of Roles.
	Permissions map[string]struct{} `json:"-"`
}

// Can reports whether the identity holds the given permission.
func (ri *ResolvedIdentity) Can(permission string) bool {
	_, ok := ri.Permissions[permission]
	return ok
}

// CanAll reports whether the identity holds every one of the given
// permissions. An empty required set is always satisfied.
func (ri *ResolvedIdentity) CanAll(permissions []string) bool {
	for _, p := range permissions {
		if !ri.Can(p) {
			return false
		}
	}
	return true
}

// Missing returns the subset of the given permissions the identity does not
// hold, preserving input order. Used for denial audit records.
func (ri *ResolvedIdentity) Missing(permissions []string) []string {
	var missing []string
	for _, p := range permissions {
		if !ri.Can(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// IsExpired reports whether the identity's session has passed its expiry.
func (ri *ResolvedIdentity) IsExpired() bool {
	return ri.Session.IsExpired()
}

// PermissionSet builds a permission set from the union of the given roles'
// permission lists. Duplicate strings collapse; an empty role slice yields an
// empty, non-nil set.
func PermissionSet(roles []Role) map[string]struct{} {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, p := range role.Permissions {
			set[p] = struct{}{}
		}
	}
	return set
}

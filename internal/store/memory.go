// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/medianest/internal/models"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing. For production, use PostgresStore
// or BadgerStore.
type MemoryStore struct {
	mu          sync.RWMutex
	principals  map[int64]*models.Principal
	roles       map[int64]*models.Role
	assignments map[int64][]int64 // principal ID -> role IDs
	sessions    map[int64]*models.Session
	nextID      int64
}

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals:  make(map[int64]*models.Principal),
		roles:       make(map[int64]*models.Role),
		assignments: make(map[int64][]int64),
		sessions:    make(map[int64]*models.Session),
	}
}

// allocID issues the next record ID (must be called with mu held).
func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// FindSessionByToken returns the session holding the given token.
func (s *MemoryStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.Token == token {
			return copySession(sess), nil
		}
	}
	return nil, ErrNotFound
}

// FindPrincipalByID returns the principal with the given ID.
func (s *MemoryStore) FindPrincipalByID(ctx context.Context, id int64) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPrincipal(p), nil
}

// FindPrincipalByName returns the principal with the given name.
func (s *MemoryStore) FindPrincipalByName(ctx context.Context, name string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.principals {
		if p.Name == name {
			return copyPrincipal(p), nil
		}
	}
	return nil, ErrNotFound
}

// FindRolesByPrincipalID returns the roles assigned to a principal.
func (s *MemoryStore) FindRolesByPrincipalID(ctx context.Context, id int64) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]models.Role, 0, len(s.assignments[id]))
	for _, roleID := range s.assignments[id] {
		if r, ok := s.roles[roleID]; ok {
			roles = append(roles, *copyRole(r))
		}
	}
	return roles, nil
}

// FindRoleByName returns the role with the given name.
func (s *MemoryStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, ErrNotFound
}

// SavePrincipal persists a principal, assigning an ID on insert.
func (s *MemoryStore) SavePrincipal(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyPrincipal(p)
	if stored.ID == 0 {
		stored.ID = s.allocID()
	}
	s.principals[stored.ID] = stored
	return copyPrincipal(stored), nil
}

// SaveRole persists a role, assigning an ID on insert.
func (s *MemoryStore) SaveRole(ctx context.Context, r *models.Role) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyRole(r)
	if stored.ID == 0 {
		stored.ID = s.allocID()
	}
	s.roles[stored.ID] = stored
	return copyRole(stored), nil
}

// AssignRole links a role to a principal.
func (s *MemoryStore) AssignRole(ctx context.Context, principalID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.principals[principalID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.assignments[principalID] {
		if existing == roleID {
			return nil
		}
	}
	s.assignments[principalID] = append(s.assignments[principalID], roleID)
	return nil
}

// SaveSession persists a new session, assigning an ID.
func (s *MemoryStore) SaveSession(ctx context.Context, sess *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copySession(sess)
	if stored.ID == 0 {
		stored.ID = s.allocID()
	}
	s.sessions[stored.ID] = stored
	return copySession(stored), nil
}

// SessionsByPrincipal returns the principal's non-expired sessions sorted by
// create time ascending.
func (s *MemoryStore) SessionsByPrincipal(ctx context.Context, principalID int64) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []models.Session
	for _, sess := range s.sessions {
		if sess.PrincipalID == principalID && !sess.IsExpired() {
			sessions = append(sessions, *copySession(sess))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreateTime.Before(sessions[j].CreateTime)
	})
	return sessions, nil
}

// DeleteSessions removes the sessions with the given IDs.
func (s *MemoryStore) DeleteSessions(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.sessions, id)
	}
	return nil
}

// DeleteSessionByToken removes the session holding the given token.
func (s *MemoryStore) DeleteSessionByToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.Token == token {
			delete(s.sessions, id)
			return nil
		}
	}
	return nil
}

// DeleteExpiredSessions removes every expired session.
func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, sess := range s.sessions {
		if sess.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Deep copies keep callers from mutating stored records through returned
// pointers, and vice versa.

func copyPrincipal(p *models.Principal) *models.Principal {
	copied := *p
	return &copied
}

func copySession(s *models.Session) *models.Session {
	copied := *s
	return &copied
}

func copyRole(r *models.Role) *models.Role {
	copied := *r
	if r.Permissions != nil {
		copied.Permissions = make([]string, len(r.Permissions))
		copy(copied.Permissions, r.Permissions)
	}
	return &copied
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)

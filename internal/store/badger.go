// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/tomtom215/medianest/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	principalKeyPrefix     = "principal:"
	principalNameKeyPrefix = "principal_name:"
	roleKeyPrefix          = "role:"
	assignKeyPrefix        = "assign:"
	sessionKeyPrefix       = "session:"
	sessionTokenKeyPrefix  = "session_token:"
	sessionOwnerKeyPrefix  = "session_owner:"
	idSequenceKey          = "medianest_ids"
)

// BadgerStore implements Store using BadgerDB for durable embedded storage.
// Suitable for single-binary deployments without an external database.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore creates a BadgerDB-backed credential store on an open
// database handle. Call Close to release the ID sequence.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(idSequenceKey), 64)
	if err != nil {
		return nil, fmt.Errorf("get id sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// Close releases the ID sequence. The database handle stays open; its owner
// closes it.
func (s *BadgerStore) Close() error {
	return s.seq.Release()
}

// nextID allocates the next record ID. Sequence values start at 0; record IDs
// start at 1.
func (s *BadgerStore) nextID() (int64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return int64(n) + 1, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// getJSON reads and unmarshals the value at key inside txn.
func getJSON(txn *badger.Txn, key string, out interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals and stores v at key inside txn.
func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// FindSessionByToken returns the session holding the given token.
func (s *BadgerStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionTokenKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get token index: %w", err)
		}

		var sessionKey string
		if err := item.Value(func(val []byte) error {
			sessionKey = sessionKeyPrefix + string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, sessionKey, &sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// FindPrincipalByID returns the principal with the given ID.
func (s *BadgerStore) FindPrincipalByID(ctx context.Context, id int64) (*models.Principal, error) {
	var p models.Principal
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, principalKeyPrefix+itoa(id), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPrincipalByName returns the principal with the given name.
func (s *BadgerStore) FindPrincipalByName(ctx context.Context, name string) (*models.Principal, error) {
	var p models.Principal
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(principalNameKeyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get name index: %w", err)
		}

		var principalKey string
		if err := item.Value(func(val []byte) error {
			principalKey = principalKeyPrefix + string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, principalKey, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindRolesByPrincipalID returns the roles assigned to a principal.
func (s *BadgerStore) FindRolesByPrincipalID(ctx context.Context, id int64) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(assignKeyPrefix + itoa(id) + ":")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			roleID := key[strings.LastIndex(key, ":")+1:]

			var role models.Role
			if err := getJSON(txn, roleKeyPrefix+roleID, &role); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // role deleted out from under the assignment
				}
				return err
			}
			roles = append(roles, role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// FindRoleByName scans the role records for a name match. Role counts are
// small, so no name index is kept.
func (s *BadgerStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var found *models.Role
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roleKeyPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var role models.Role
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &role)
			}); err != nil {
				return err
			}
			if role.Name == name {
				found = &role
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SavePrincipal persists a principal, assigning an ID on insert.
func (s *BadgerStore) SavePrincipal(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	saved := *p
	if saved.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return nil, err
		}
		saved.ID = id
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, principalKeyPrefix+itoa(saved.ID), &saved); err != nil {
			return err
		}
		return txn.Set([]byte(principalNameKeyPrefix+saved.Name), []byte(itoa(saved.ID)))
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// SaveRole persists a role, assigning an ID on insert.
func (s *BadgerStore) SaveRole(ctx context.Context, r *models.Role) (*models.Role, error) {
	saved := *r
	if saved.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return nil, err
		}
		saved.ID = id
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, roleKeyPrefix+itoa(saved.ID), &saved)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AssignRole links a role to a principal.
func (s *BadgerStore) AssignRole(ctx context.Context, principalID, roleID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(principalKeyPrefix + itoa(principalID))); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if _, err := txn.Get([]byte(roleKeyPrefix + itoa(roleID))); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Set([]byte(assignKeyPrefix+itoa(principalID)+":"+itoa(roleID)), nil)
	})
}

// SaveSession persists a new session, assigning an ID.
func (s *BadgerStore) SaveSession(ctx context.Context, sess *models.Session) (*models.Session, error) {
	saved := *sess
	if saved.ID == 0 {
		id, err := s.nextID()
		if err != nil {
			return nil, err
		}
		saved.ID = id
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, sessionKeyPrefix+itoa(saved.ID), &saved); err != nil {
			return err
		}
		if err := txn.Set([]byte(sessionTokenKeyPrefix+saved.Token), []byte(itoa(saved.ID))); err != nil {
			return fmt.Errorf("set token index: %w", err)
		}
		ownerKey := sessionOwnerKeyPrefix + itoa(saved.PrincipalID) + ":" + itoa(saved.ID)
		if err := txn.Set([]byte(ownerKey), []byte(itoa(saved.ID))); err != nil {
			return fmt.Errorf("set owner index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// SessionsByPrincipal returns the principal's non-expired sessions sorted by
// create time ascending.
func (s *BadgerStore) SessionsByPrincipal(ctx context.Context, principalID int64) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(sessionOwnerKeyPrefix + itoa(principalID) + ":")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sessionID string
			if err := it.Item().Value(func(val []byte) error {
				sessionID = string(val)
				return nil
			}); err != nil {
				return err
			}

			var sess models.Session
			if err := getJSON(txn, sessionKeyPrefix+sessionID, &sess); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // stale owner index entry
				}
				return err
			}
			if !sess.IsExpired() {
				sessions = append(sessions, sess)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreateTime.Before(sessions[j].CreateTime)
	})
	return sessions, nil
}

// deleteSessionTxn removes a session record and its index entries.
func deleteSessionTxn(txn *badger.Txn, sess *models.Session) error {
	if err := txn.Delete([]byte(sessionKeyPrefix + itoa(sess.ID))); err != nil {
		return err
	}
	if err := txn.Delete([]byte(sessionTokenKeyPrefix + sess.Token)); err != nil {
		return err
	}
	return txn.Delete([]byte(sessionOwnerKeyPrefix + itoa(sess.PrincipalID) + ":" + itoa(sess.ID)))
}

// DeleteSessions removes the sessions with the given IDs.
func (s *BadgerStore) DeleteSessions(ctx context.Context, ids []int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			var sess models.Session
			if err := getJSON(txn, sessionKeyPrefix+itoa(id), &sess); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if err := deleteSessionTxn(txn, &sess); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSessionByToken removes the session holding the given token.
func (s *BadgerStore) DeleteSessionByToken(ctx context.Context, token string) error {
	sess, err := s.FindSessionByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteSessionTxn(txn, sess)
	})
}

// DeleteExpiredSessions removes every expired session.
func (s *BadgerStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	var expired []models.Session
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(sessionKeyPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var sess models.Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sess)
			}); err != nil {
				return err
			}
			if sess.IsExpired() {
				expired = append(expired, sess)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for i := range expired {
			if err := deleteSessionTxn(txn, &expired[i]); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// compile-time interface check
var _ Store = (*BadgerStore)(nil)

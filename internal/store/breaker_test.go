// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/medianest/internal/models"
)

// failingStore simulates a dead backend: every call errors.
type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	return nil, f.err
}

func (f *failingStore) FindPrincipalByID(ctx context.Context, id int64) (*models.Principal, error) {
	return nil, f.err
}

func TestBreakerStore_PassesThroughOnSuccess(t *testing.T) {
	inner := NewMemoryStore()
	ctx := context.Background()

	sess, err := inner.SaveSession(ctx, &models.Session{
		PrincipalID: 1, Token: "tok", CreateTime: time.Now(), ExpireTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	bs := NewBreakerStore(inner)
	found, err := bs.FindSessionByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("FindSessionByToken() error = %v", err)
	}
	if found.ID != sess.ID {
		t.Errorf("ID = %d, want %d", found.ID, sess.ID)
	}
}

func TestBreakerStore_NotFoundPassesThrough(t *testing.T) {
	bs := NewBreakerStore(NewMemoryStore())
	ctx := context.Background()

	// ErrNotFound is a healthy answer; it must not be rewritten to
	// ErrUnavailable, no matter how often it occurs.
	for i := 0; i < 20; i++ {
		_, err := bs.FindSessionByToken(ctx, "absent")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: error = %v, want ErrNotFound", i, err)
		}
	}
}

func TestBreakerStore_FailureMapsToUnavailable(t *testing.T) {
	inner := &failingStore{err: errors.New("connection refused")}
	bs := NewBreakerStore(inner)
	ctx := context.Background()

	_, err := bs.FindSessionByToken(ctx, "tok")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestBreakerStore_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &failingStore{err: errors.New("connection refused")}
	bs := NewBreakerStore(inner)
	ctx := context.Background()

	// Enough failures to trip the 60%-of-10 threshold.
	for i := 0; i < 15; i++ {
		//nolint:errcheck // failures are the point here
		bs.FindPrincipalByID(ctx, 1)
	}

	// The open circuit also reports ErrUnavailable, so callers see one
	// consistent error kind for a dead store.
	_, err := bs.FindPrincipalByID(ctx, 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error after trip = %v, want ErrUnavailable", err)
	}
}

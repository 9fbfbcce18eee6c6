// MediaNest - Media Library Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medianest

// Package identity resolves bearer tokens into permission-bearing identities
// and publishes them on the request context for the authorization gate.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/medianest/internal/models"
)

// Cache maps bearer tokens to resolved identities so repeated requests skip
// the credential store. Session lifecycle events (revocation, eviction,
// reaping) must call InvalidateAll; a stale entry otherwise outlives its
// session for up to the session's remaining lifetime.
//
// Expiry is enforced at both edges: Put drops identities whose session has
// already expired, and Get treats an expired entry as a miss. The gate still
// re-checks expiry; the cache check only keeps dead entries from being
// served.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*models.ResolvedIdentity
}

// NewCache creates an empty identity cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*models.ResolvedIdentity),
	}
}

// Get returns the cached identity for the token, or a miss when the token is
// unknown or the cached session has expired.
func (c *Cache) Get(token string) (*models.ResolvedIdentity, bool) {
	c.mu.RLock()
	ri, ok := c.entries[token]
	c.mu.RUnlock()

	if !ok {
		cacheMisses.Inc()
		return nil, false
	}
	if ri.IsExpired() {
		cacheMisses.Inc()
		return nil, false
	}
	cacheHits.Inc()
	return ri, true
}

// Put caches the identity keyed by its session token. Identities whose
// session has already expired are not cached, so an expired resolution is
// re-derived from the store on every request until the reaper removes it.
func (c *Cache) Put(ri *models.ResolvedIdentity) {
	if ri == nil || ri.IsExpired() {
		return
	}
	c.mu.Lock()
	c.entries[ri.Session.Token] = ri
	c.mu.Unlock()
}

// InvalidateAll drops every cached identity by swapping the map. Coarse but
// correct: the next request per token re-resolves from the store.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*models.ResolvedIdentity)
	c.mu.Unlock()
	cacheInvalidations.Inc()
}

// Len returns the number of cached identities, expired entries included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Janitor evicts expired entries on the given interval until the context is
// canceled. Optional: correctness does not depend on it, only memory usage.
func (c *Cache) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, ri := range c.entries {
		if ri.IsExpired() {
			delete(c.entries, token)
		}
	}
}

package cache

import (
	"sync"
	"time"

	"stocksrealtime/internal/provider"
)

// DefaultTTL is the absolute lifetime of a cached quote lookup.
const DefaultTTL = 5 * time.Minute

// entry stores one lookup result with expiry. A nil quote is a cached
// failure and is returned like any other value until it expires.
type entry struct {
	expiresAt time.Time
	quote     *provider.Quote
}

// Store caches quote lookups per key for a fixed TTL measured from insertion.
// Entries are never updated in place; Set replaces them.
type Store struct {
	TTL      time.Duration
	MaxItems int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

// Get returns the cached value for key and whether an unexpired entry exists.
// A hit may carry a nil quote.
func (s *Store) Get(key string) (*provider.Quote, bool) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	if e.quote == nil {
		return nil, true
	}
	q := *e.quote
	return &q, true
}

// Set stores q (possibly nil) under key, replacing any previous entry.
func (s *Store) Set(key string, q *provider.Quote) {
	now := s.now()
	var stored *provider.Quote
	if q != nil {
		cp := *q
		stored = &cp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]entry)
	}
	s.items[key] = entry{expiresAt: now.Add(s.ttl()), quote: stored}

	// best-effort cap cache size
	if s.MaxItems > 0 && len(s.items) > s.MaxItems {
		// remove expired first, then arbitrary keys other than the one just written
		for k, v := range s.items {
			if !now.Before(v.expiresAt) {
				delete(s.items, k)
			}
		}
		for k := range s.items {
			if len(s.items) <= s.MaxItems {
				break
			}
			if k != key {
				delete(s.items, k)
			}
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Package memorystate provides an in-memory implementation of the state
// store using github.com/hashicorp/golang-lru/v2 for bounded caching with
// TTL support.
package memorystate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentfleet/toolpool/state"
)

const (
	// DefaultTTL keeps a tenant's tool-set memory for 30 days of inactivity.
	DefaultTTL = 30 * 24 * time.Hour

	cleanupInterval = 5 * time.Minute
)

// Store implements state.Store in process memory.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *record]
	ttl   time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type record struct {
	tools     map[string]struct{}
	expiresAt time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL overrides the memory TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates an in-memory store holding at most maxEntries tenants.
func New(maxEntries int, opts ...Option) (*Store, error) {
	cache, err := lru.New[string, *record](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Store{
		cache:       cache,
		ttl:         DefaultTTL,
		stopCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupExpired()

	return s, nil
}

func (s *Store) ToolSet(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	if time.Now().After(rec.expiresAt) {
		s.cache.Remove(key)
		return nil, nil
	}

	tools := make([]string, 0, len(rec.tools))
	for name := range rec.tools {
		tools = append(tools, name)
	}
	sort.Strings(tools)
	return tools, nil
}

func (s *Store) RememberToolSet(ctx context.Context, key string, tools []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache.Get(key)
	if !ok || time.Now().After(rec.expiresAt) {
		rec = &record{tools: make(map[string]struct{}, len(tools))}
	}
	for _, name := range tools {
		rec.tools[name] = struct{}{}
	}
	rec.expiresAt = time.Now().Add(s.ttl)
	s.cache.Add(key, rec)
	return nil
}

func (s *Store) Forget(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
	return nil
}

func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

// cleanupExpired periodically removes expired records so idle tenants do not
// occupy cache slots until evicted by capacity pressure.
func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		now := time.Now()
		for _, key := range s.cache.Keys() {
			if rec, ok := s.cache.Peek(key); ok && now.After(rec.expiresAt) {
				s.cache.Remove(key)
			}
		}
		s.mu.Unlock()
	}
}

var _ state.Store = (*Store)(nil)

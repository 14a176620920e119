package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/config"
	"github.com/aisessions/server/internal/model"
)

type registryEntry struct {
	store    *Store
	ready    chan struct{}
	lastUsed time.Time
}

// Registry hands out one initialized Store per signed-in user.
type Registry struct {
	backend     Backend
	cache       VoteCache
	idleTTL     time.Duration
	initTimeout time.Duration
	opts        []Option
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(backend Backend, cache VoteCache, idleTTL time.Duration, opts ...Option) *Registry {
	return &Registry{
		backend:     backend,
		cache:       cache,
		idleTTL:     idleTTL,
		initTimeout: config.StoreInitTimeout,
		opts:        opts,
		now:         time.Now,
		entries:     make(map[string]*registryEntry),
	}
}

// Get returns the user's store, creating and initializing it on first use.
// Concurrent callers for a new user wait for the same Init, which runs
// detached from ctx under its own timeout. A failed Init still yields the
// store to its waiters, carrying whatever loaded and its last error, but is
// not kept: the next Get starts over.
func (r *Registry) Get(ctx context.Context, user *model.User) (*Store, error) {
	r.mu.Lock()
	entry, ok := r.entries[user.ID]
	if ok {
		entry.lastUsed = r.now()
		r.mu.Unlock()

		select {
		case <-entry.ready:
			return entry.store, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	entry = &registryEntry{
		store:    New(r.backend, r.cache, user, r.opts...),
		ready:    make(chan struct{}),
		lastUsed: r.now(),
	}
	r.entries[user.ID] = entry
	r.mu.Unlock()

	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.initTimeout)
	err := entry.store.Init(initCtx)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("store initialized with errors")
		r.mu.Lock()
		if r.entries[user.ID] == entry {
			delete(r.entries, user.ID)
		}
		r.mu.Unlock()
	}
	close(entry.ready)

	return entry.store, nil
}

// Drop forgets the user's store, e.g. on sign-out.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// EvictIdle removes stores that have not been used within the idle TTL.
func (r *Registry) EvictIdle(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted int64
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

package service

import (
	"context"
	"sync"
	"time"

	"pipedrill/internal/repository"

	"go.uber.org/zap"
)

type registryEntry struct {
	store    *CartStore
	lastUsed time.Time
}

// Registry hands out one CartStore per shopper session, restoring it from
// the repository on first use. Idle stores can be evicted with Sweep; their
// carts stay in the repository.
type Registry struct {
	repo   repository.CartRepository
	ids    *IDGenerator
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(repo repository.CartRepository, logger *zap.Logger) *Registry {
	return &Registry{
		repo:    repo,
		ids:     NewIDGenerator(),
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Store returns the session's CartStore, creating it if needed
func (r *Registry) Store(ctx context.Context, sessionID string) (*CartStore, error) {
	if store, ok := r.lookup(sessionID); ok {
		return store, nil
	}

	store, err := NewCartStore(ctx, sessionID, r.repo, r.ids, r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request for the same session may have won the race.
	if entry, ok := r.entries[sessionID]; ok {
		entry.lastUsed = r.now()
		return entry.store, nil
	}
	r.entries[sessionID] = &registryEntry{store: store, lastUsed: r.now()}

	r.logger.Debug("Cart session opened", zap.String("session_id", sessionID))
	return store, nil
}

func (r *Registry) lookup(sessionID string) (*CartStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = r.now()
	return entry.store, true
}

// Sweep drops stores idle for longer than maxIdle and returns how many were dropped
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	dropped := 0
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/logger"
)

const revokedKeyPrefix = "revoked:"

// Registry records logged-out token ids. The in-process set alone is correct
// for a single instance; when the cache store is connected each revocation is
// also written there with the token's remaining lifetime so that every
// instance rejects it.
type Registry struct {
	mu     sync.RWMutex
	local  map[string]time.Time
	shared *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(shared *cache.Cache, l *slog.Logger) *Registry {
	return &Registry{
		local:  make(map[string]time.Time),
		shared: shared,
		logger: logger.OrDefault(l).With("component", "revocations"),
		now:    time.Now,
	}
}

// Revoke marks a token id as unusable until expiresAt
func (r *Registry) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) {
	now := r.now()

	r.mu.Lock()
	r.local[tokenID] = expiresAt
	// expired ids can never verify again, so dropping them is unobservable
	for id, exp := range r.local {
		if !exp.IsZero() && exp.Before(now) {
			delete(r.local, id)
		}
	}
	r.mu.Unlock()

	if !r.shared.Enabled() {
		return
	}

	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	if err := r.shared.Client().Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		r.logger.Warn("shared revocation write failed", "error", err)
	}
}

// IsRevoked reports whether a token id was revoked by this or any instance
func (r *Registry) IsRevoked(ctx context.Context, tokenID string) bool {
	r.mu.RLock()
	_, ok := r.local[tokenID]
	r.mu.RUnlock()
	if ok {
		return true
	}

	if !r.shared.Enabled() {
		return false
	}

	n, err := r.shared.Client().Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		r.logger.Warn("shared revocation lookup failed", "error", err)
		return false
	}
	return n > 0
}

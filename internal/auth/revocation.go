package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RevocationRegistry records tokens invalidated before their natural expiry.
// Entries only need to outlive the token's own expiry, after which the codec
// rejects it anyway.
type RevocationRegistry interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenKey derives a fixed-size key from the exact token string.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRegistry is a process-local RevocationRegistry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRegistry constructs an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke records token until expiresAt. Repeat calls keep the later expiry.
func (r *MemoryRegistry) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	key := tokenKey(token)
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[key]; !ok || expiresAt.After(current) {
		r.entries[key] = expiresAt
	}
	return nil
}

// IsRevoked reports whether token has been revoked.
func (r *MemoryRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	key := tokenKey(token)
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok, nil
}

// Len returns the number of tracked entries.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Purge drops entries whose token expired at or before now and returns how many.
func (r *MemoryRegistry) Purge(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is cancelled.
func (r *MemoryRegistry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Purge(r.now())
		}
	}
}

var _ RevocationRegistry = (*MemoryRegistry)(nil)

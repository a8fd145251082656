package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// revokeScript writes the marker unless the key already outlives the new TTL.
// PTTL is -2 for a missing key and -1 for a key without expiry.
var revokeScript = redis.NewScript(`
local current = redis.call("PTTL", KEYS[1])
local ttl = tonumber(ARGV[1])
if current == -1 or current >= ttl then
	return 0
end
redis.call("SET", KEYS[1], "1", "PX", ARGV[1])
return 1
`)

// RedisRegistry stores revocations in Redis with a TTL equal to the token's
// remaining lifetime, so entries evict themselves and are shared across instances.
type RedisRegistry struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisRegistry constructs a Redis backed registry.
func NewRedisRegistry(client redis.Cmdable) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

// Revoke stores token until expiresAt. Tokens already past expiry are skipped.
// A repeated revoke keeps the longer TTL, checked and written in one script.
func (r *RedisRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	key := revokedKeyPrefix + tokenKey(token)
	if err := revokeScript.Run(ctx, r.client, []string{key}, ms).Err(); err != nil {
		return fmt.Errorf("auth: redis revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether token is present in Redis.
func (r *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: redis is revoked: %w", err)
	}
	return n > 0, nil
}

var _ RevocationRegistry = (*RedisRegistry)(nil)

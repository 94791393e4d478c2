package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// A nil *redis.Client disables caching: reads miss and writes are no-ops.

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Caching disabled
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// Generation counters let a reader detect that its value predates a later write.

// CacheGeneration returns the current generation of key, zero when none was recorded
func CacheGeneration(ctx context.Context, rdb *redis.Client, key string) (int64, error) {
	if rdb == nil {
		return 0, nil // Caching disabled
	}
	n, err := rdb.Get(ctx, key+":gen").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil // No write seen yet
	}
	return n, err
}

// BumpGeneration advances the generation of key and drops its cached value
func BumpGeneration(ctx context.Context, rdb *redis.Client, key string) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	if err := rdb.Incr(ctx, key+":gen").Err(); err != nil {
		return err
	}
	return DeleteCache(ctx, rdb, key)
}

// revokedPrefix namespaces revoked token IDs
const revokedPrefix = "jwt:revoked:"

// RevokeToken remembers a token ID until the token would have expired anyway
func RevokeToken(ctx context.Context, rdb *redis.Client, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if rdb == nil || tokenID == "" || ttl <= 0 {
		return nil // Nothing to remember
	}
	return rdb.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
}

// IsTokenRevoked reports whether a token ID was revoked by sign-out
func IsTokenRevoked(ctx context.Context, rdb *redis.Client, tokenID string) (bool, error) {
	if rdb == nil || tokenID == "" {
		return false, nil // Revocation disabled
	}
	n, err := rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

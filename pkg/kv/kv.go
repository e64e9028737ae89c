// Package kv defines the key-value surface the world engine runs against:
// hashes, sets and sorted sets plus a cursor-based set scan. Production is
// Redis; tests and single-process deployments use the in-memory store.
package kv

import "context"

// ScoredMember pairs a sorted-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// Store is the engine-facing key-value surface.
//
// Scan cursors follow the Redis convention: pass 0 to start, feed the
// returned cursor back in, and stop when it comes back as 0.
type Store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) (int64, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int64, reverse bool) ([]ScoredMember, error)

	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error)
}

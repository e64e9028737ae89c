package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the production store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Redis adapts a go-redis client to the Store interface. All methods map
// one-to-one onto Redis commands.
type Redis struct {
	client *redis.Client
}

var _ Store = (*Redis)(nil)

// NewRedis connects a client; it does not touch the network until the first
// command. Call Ping to verify reachability at startup.
func NewRedis(opts RedisOptions) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})}
}

// Ping verifies the connection with a short deadline.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kv: redis ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	out, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv: hgetall %s: %w", key, err)
	}
	return out, nil
}

func (r *Redis) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	n, err := r.client.HSet(ctx, key, fields).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: hset %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := r.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: hincrby %s %s: %w", key, field, err)
	}
	return n, nil
}

func (r *Redis) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	set, err := r.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("kv: hsetnx %s %s: %w", key, field, err)
	}
	return set, nil
}

func (r *Redis) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := r.client.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: hdel %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	score, err := r.client.ZIncrBy(ctx, key, delta, member).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: zincrby %s: %w", key, err)
	}
	return score, nil
}

func (r *Redis) ZRangeWithScores(ctx context.Context, key string, start, stop int64, reverse bool) ([]ScoredMember, error) {
	var (
		zs  []redis.Z
		err error
	)
	if reverse {
		zs, err = r.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	} else {
		zs, err = r.client.ZRangeWithScores(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("kv: zrange %s: %w", key, err)
	}
	out := make([]ScoredMember, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, ScoredMember{Member: member, Score: z.Score})
	}
	return out, nil
}

func (r *Redis) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := r.client.SAdd(ctx, key, toAnySlice(members)...).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: sadd %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := r.client.SRem(ctx, key, toAnySlice(members)...).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: srem %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv: smembers %s: %w", key, err)
	}
	return members, nil
}

func (r *Redis) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	members, next, err := r.client.SScan(ctx, key, cursor, "", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("kv: sscan %s: %w", key, err)
	}
	return members, next, nil
}

func toAnySlice(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	wakeupZSetKey   = "pulseflow:wakeups"
	wakeupHashKey   = "pulseflow:wakeups:data"
	redisPingWindow = 5 * time.Second
)

// RedisStore keeps wakeups in a sorted set scored by resume time, with the
// wakeup payloads in a companion hash. Suitable when multiple workers share
// one scheduler backend.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingWindow)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (rs *RedisStore) SaveWakeup(ctx context.Context, wakeup *Wakeup) error {
	payload, err := json.Marshal(wakeup)
	if err != nil {
		return fmt.Errorf("failed to marshal wakeup: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.ZAdd(ctx, wakeupZSetKey, redis.Z{
		Score:  float64(wakeup.ResumeAt.UnixMilli()),
		Member: wakeup.ExecutionID,
	})
	pipe.HSet(ctx, wakeupHashKey, wakeup.ExecutionID, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save wakeup: %w", err)
	}

	return nil
}

func (rs *RedisStore) DueWakeups(ctx context.Context, before time.Time) ([]*Wakeup, error) {
	ids, err := rs.client.ZRangeByScore(ctx, wakeupZSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due wakeups: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	payloads, err := rs.client.HMGet(ctx, wakeupHashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load wakeup payloads: %w", err)
	}

	due := make([]*Wakeup, 0, len(payloads))

	for _, raw := range payloads {
		str, ok := raw.(string)
		if !ok {
			continue
		}

		var wakeup Wakeup
		if err := json.Unmarshal([]byte(str), &wakeup); err != nil {
			continue
		}

		due = append(due, &wakeup)
	}

	return due, nil
}

func (rs *RedisStore) DeleteWakeup(ctx context.Context, executionID string) error {
	pipe := rs.client.TxPipeline()
	pipe.ZRem(ctx, wakeupZSetKey, executionID)
	pipe.HDel(ctx, wakeupHashKey, executionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete wakeup: %w", err)
	}

	return nil
}

func (rs *RedisStore) Close(_ context.Context) error {
	return rs.client.Close()
}

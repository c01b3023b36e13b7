package requestmetrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "authapp:metrics"

// RedisCounter shares counts across replicas. Each Record and Snapshot is a
// single MULTI/EXEC transaction.
type RedisCounter struct {
	client       redis.Cmdable
	totalKey     string
	endpointsKey string
	now          func() time.Time
}

func NewRedisCounter(client redis.Cmdable, keyPrefix string) *RedisCounter {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCounter{
		client:       client,
		totalKey:     keyPrefix + ":total",
		endpointsKey: keyPrefix + ":endpoints",
		now:          time.Now,
	}
}

func (c *RedisCounter) Record(ctx context.Context, method, path string) (Counts, error) {
	key := EndpointKey(method, path)

	var total, endpoint *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.Incr(ctx, c.totalKey)
		endpoint = pipe.HIncrBy(ctx, c.endpointsKey, key, 1)
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("record request: %w", err)
	}
	return Counts{Total: total.Val(), Endpoint: endpoint.Val()}, nil
}

func (c *RedisCounter) Snapshot(ctx context.Context) (Snapshot, error) {
	var total *redis.StringCmd
	var endpoints *redis.MapStringStringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.Get(ctx, c.totalKey)
		endpoints = pipe.HGetAll(ctx, c.endpointsKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("read metrics: %w", err)
	}

	snap := Snapshot{
		EndpointCounts: make(map[string]int64, len(endpoints.Val())),
		Timestamp:      c.now().UTC(),
	}
	if v, err := total.Int64(); err == nil {
		snap.TotalRequests = v
	} else if !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("parse total: %w", err)
	}
	for key, raw := range endpoints.Val() {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("parse count for %q: %w", key, err)
		}
		snap.EndpointCounts[key] = n
	}
	return snap, nil
}

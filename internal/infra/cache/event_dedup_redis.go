package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stripeは最大3日再送する
const DefaultEventTTL = 72 * time.Hour

const eventKeyPrefix = "foodorder:webhook:event:"

type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// EventDedupRedis は処理済みwebhookイベントIDを覚えておく
type EventDedupRedis struct {
	client redisClient
	ttl    time.Duration
}

func NewEventDedupRedis(client redisClient, ttl time.Duration) *EventDedupRedis {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventDedupRedis{client: client, ttl: ttl}
}

// NewRedisClient は addr に接続するクライアントを作る
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (d *EventDedupRedis) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (d *EventDedupRedis) Remember(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, eventKeyPrefix+eventID, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", eventID, err)
	}
	return nil
}

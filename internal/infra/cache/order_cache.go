package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"bookstore/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const (
	orderKeyPrefix  = "order:"
	defaultCacheTTL = 5 * time.Minute
)

// RedisOrderViewCache は組み立て済みの注文ビューをRedisに置く。
// 書き込み系は常にPostgresが正で、ここは読み取り専用の脇道。
type RedisOrderViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrderViewCache(addr string, password string, db int, ttl time.Duration) *RedisOrderViewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisOrderViewCache{client: client, ttl: ttl}
}

func (c *RedisOrderViewCache) Get(ctx context.Context, orderID int64) (usecase.OrderOutput, bool, error) {
	data, err := c.client.Get(ctx, orderKey(orderID)).Bytes()
	if err == redis.Nil {
		return usecase.OrderOutput{}, false, nil
	}
	if err != nil {
		return usecase.OrderOutput{}, false, err
	}

	var out usecase.OrderOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return usecase.OrderOutput{}, false, err
	}
	return out, true, nil
}

func (c *RedisOrderViewCache) Set(ctx context.Context, out usecase.OrderOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, orderKey(out.ID), data, c.ttl).Err()
}

func (c *RedisOrderViewCache) Delete(ctx context.Context, orderID int64) error {
	return c.client.Del(ctx, orderKey(orderID)).Err()
}

func orderKey(orderID int64) string {
	return orderKeyPrefix + strconv.FormatInt(orderID, 10)
}

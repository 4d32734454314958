// Package cache は公開商品の読み取りキャッシュ（Redis）。
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/zvMateo/yerbaXanaes-main-sub000/internal/domain/model"
)

const keyPrefix = "product:"

// redis.Client のうち使う部分
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type ProductRedisCache struct {
	client redisAPI
	ttl    time.Duration
}

// DI
func NewProductRedisCache(client *redis.Client, ttl time.Duration) *ProductRedisCache {
	return &ProductRedisCache{client: client, ttl: ttl}
}

// Connect はRedisに接続してPingする
func Connect(ctx context.Context, addr string, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	return client, nil
}

func key(id string) string {
	return keyPrefix + id
}

func (c *ProductRedisCache) Get(ctx context.Context, id string) (model.Product, bool, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, errors.Wrapf(err, "get %s", key(id))
	}

	var p model.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Product{}, false, errors.Wrapf(err, "decode %s", key(id))
	}
	return p, true, nil
}

func (c *ProductRedisCache) Set(ctx context.Context, p model.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode product")
	}
	if err := c.client.Set(ctx, key(p.ID), b, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key(p.ID))
	}
	return nil
}

func (c *ProductRedisCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return errors.Wrapf(err, "del %s", key(id))
	}
	return nil
}

package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/tagspace/core"
)

// RedisStore 是 Redis 实现的 Store。多台机器评估同一批 checkpoint 时，
// 训练端把每个 epoch 的 safetensors 写到 Redis，评估端按 key 读取。
type RedisStore struct {
	client *redis.Client
	addr   string
}

// NewRedisStore 建立连接并 Ping 一次，连接失败直接返回错误。
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.Wrap(err, core.ModuleStore, core.ErrorCodeInternalError, "redis ping %s", addr)
	}
	return &RedisStore{client: client, addr: addr}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, core.Wrap(err, core.ModuleStore, core.ErrorCodeInternalError, "redis get %s", key)
	}
	return val, nil
}

// Set 写入不过期的 key，checkpoint 由训练侧负责清理。
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

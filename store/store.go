// Package store 提供 core.Store 的实现，用于存放 checkpoint 二进制块。
//
// 此包只包含实现，接口定义在 core 包：
//
//	var s core.Store = store.NewMemoryStore()
//	rs, err := store.NewRedisStore(ctx, "127.0.0.1:6379", 0)
package store

import "github.com/rushteam/tagspace/core"

var (
	_ core.Store = (*MemoryStore)(nil)
	_ core.Store = (*RedisStore)(nil)
)

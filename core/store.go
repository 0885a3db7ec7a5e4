package core

import "context"

// Store 是 checkpoint 二进制块的存储接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 只承载字节，不关心 checkpoint 的编码格式
//
// 实现：
//   - store.MemoryStore（测试/开发）
//   - store.RedisStore（多机共享 checkpoint）
type Store interface {
	// Name 返回存储后端名称（用于日志）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// Close 关闭连接/释放资源
	Close() error
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

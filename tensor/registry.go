package tensor

import (
	"sort"
	"sync"
)

// 设备后端注册表：各后端在 init 中调用 Register(name, backend) 即可被配置驱动（dygraph.use_gpu）。
// cpu 后端（gonum）总是注册；gpu 后端需要额外的构建标签引入。

// GPU 是 GPU 后端的注册名称。
const GPU = "gpu"

var (
	defaultBackends   = make(map[string]Backend)
	defaultBackendsMu sync.RWMutex
)

// Register 注册一种设备后端。name 为空或 backend 为 nil 时忽略。
func Register(name string, backend Backend) {
	if name == "" || backend == nil {
		return
	}
	defaultBackendsMu.Lock()
	defer defaultBackendsMu.Unlock()
	defaultBackends[name] = backend
}

// Lookup 按名称查找后端。
func Lookup(name string) (Backend, bool) {
	defaultBackendsMu.RLock()
	defer defaultBackendsMu.RUnlock()
	b, ok := defaultBackends[name]
	return b, ok
}

// SupportedBackends 返回当前已注册的后端名称（排序），用于错误提示与日志。
func SupportedBackends() []string {
	defaultBackendsMu.RLock()
	defer defaultBackendsMu.RUnlock()
	names := make([]string, 0, len(defaultBackends))
	for n := range defaultBackends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetDevice 对应 use_gpu 开关：请求 gpu 时优先返回 gpu 后端，未注册则回退到 cpu。
// fellBack 为 true 表示发生了回退，调用方负责记录告警。
func SetDevice(useGPU bool) (backend Backend, fellBack bool) {
	if useGPU {
		if b, ok := Lookup(GPU); ok {
			return b, false
		}
		fellBack = true
	}
	b, ok := Lookup(CPU)
	if !ok {
		// cpu 在本包 init 中注册，只有被测试覆盖时才会缺失
		b = GonumBackend{}
	}
	return b, fellBack
}

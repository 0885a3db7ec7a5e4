// Package config 加载 YAML 配置，并按点分 key（如 "dygraph.batch_size_infer"）读取类型化的值。
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/pkg/conv"
)

// Config 是一次运行内只读的配置树。
type Config struct {
	path string
	root map[string]any
}

// Load 从 YAML 文件加载配置，path 会被转换成绝对路径。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "config path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "resolve config path %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "config file %s not found", abs)
		}
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "read file")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = abs
	return cfg, nil
}

// Parse 解析 YAML 内容。空文档或顶层不是 mapping 都视为配置错误。
func Parse(data []byte) (*Config, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "parse yaml")
	}
	if root == nil {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "parse yaml: document is empty")
	}
	return &Config{root: root}, nil
}

// FromMap 用已有的 map 构造配置，主要用于测试。
func FromMap(m map[string]any) *Config {
	return &Config{root: m}
}

// Path 返回配置文件的绝对路径；FromMap/Parse 构造的配置返回空串。
func (c *Config) Path() string {
	return c.path
}

// Lookup 按点分 key 查找原始值。
func (c *Config) Lookup(key string) (any, bool) {
	if c == nil || c.root == nil {
		return nil, false
	}
	var cur any = c.root
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Has 判断 key 是否存在且非 null。
func (c *Config) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// get 是所有类型化读取的公共实现：key 不存在返回 (零值, false, nil)，类型不符返回配置错误。
func get[T any](c *Config, key, typeName string, convert func(any) (T, bool)) (T, bool, error) {
	var zero T
	raw, ok := c.Lookup(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := convert(raw)
	if !ok {
		return zero, true, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"config key %q: expected %s, got %T (%v)", key, typeName, raw, raw)
	}
	return v, true, nil
}

func require[T any](c *Config, key, typeName string, convert func(any) (T, bool)) (T, error) {
	v, ok, err := get(c, key, typeName, convert)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, missing(key)
	}
	return v, nil
}

func missing(key string) error {
	return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "required config key %q is missing", key)
}

// Int 读取整数，key 不存在时返回 def。
func (c *Config) Int(key string, def int) (int, error) {
	v, ok, err := get(c, key, "int", conv.ToInt)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Float 读取浮点数，key 不存在时返回 def。
func (c *Config) Float(key string, def float64) (float64, error) {
	v, ok, err := get(c, key, "float", conv.ToFloat64)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Bool 读取布尔值，key 不存在时返回 def。
func (c *Config) Bool(key string, def bool) (bool, error) {
	v, ok, err := get(c, key, "bool", conv.ToBool)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// String 读取字符串，key 不存在时返回 def。
func (c *Config) String(key string, def string) (string, error) {
	v, ok, err := get(c, key, "string", conv.ToString)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// RequireInt 读取必填整数。
func (c *Config) RequireInt(key string) (int, error) {
	return require(c, key, "int", conv.ToInt)
}

// RequireString 读取必填字符串。
func (c *Config) RequireString(key string) (string, error) {
	return require(c, key, "string", conv.ToString)
}

// Reader 累积读取过程中的第一个错误，避免每个 key 都写一遍 if err != nil。
//
// 用法：
//
//	r := cfg.Reader()
//	batch := r.RequireInt("dygraph.batch_size_infer")
//	gpu := r.Bool("dygraph.use_gpu", false)
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	cfg *Config
	err error
}

// Reader 返回绑定到该配置的 Reader。
func (c *Config) Reader() *Reader {
	return &Reader{cfg: c}
}

// Err 返回第一个读取错误。
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *Reader) Int(key string, def int) int {
	v, err := r.cfg.Int(key, def)
	r.keep(err)
	return v
}

func (r *Reader) Float(key string, def float64) float64 {
	v, err := r.cfg.Float(key, def)
	r.keep(err)
	return v
}

func (r *Reader) Bool(key string, def bool) bool {
	v, err := r.cfg.Bool(key, def)
	r.keep(err)
	return v
}

func (r *Reader) String(key string, def string) string {
	v, err := r.cfg.String(key, def)
	r.keep(err)
	return v
}

func (r *Reader) RequireInt(key string) int {
	v, err := r.cfg.RequireInt(key)
	r.keep(err)
	return v
}

func (r *Reader) RequireString(key string) string {
	v, err := r.cfg.RequireString(key)
	r.keep(err)
	return v
}

// Errorf 记录一个自定义的校验错误（例如取值范围不合法）。
func (r *Reader) Errorf(format string, args ...any) {
	r.keep(core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, format, args...))
}

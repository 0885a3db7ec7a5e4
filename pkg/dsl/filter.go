// Package dsl 提供样本过滤表达式，使用 CEL (Common Expression Language) 实现。
//
// 表达式可访问变量 sample：
//   - sample.text      补齐/截断后的 token id 列表
//   - sample.pos_tag   正标签 id
//   - sample.neg_tags  负标签 id 列表
//   - sample.length    补齐前的 token 数
//
// 示例：
//   - `sample.length >= 3` → 只评估至少 3 个 token 的文本
//   - `sample.pos_tag != 0 && sample.length < 50`
//   - `!(7 in sample.text)` → 排除包含 token 7 的样本
package dsl

import (
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/tagspace/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("sample", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// SampleFilter 是编译好的过滤表达式，可并发调用 Match。
type SampleFilter struct {
	expr string
	prg  cel.Program
}

// NewSampleFilter 编译表达式。表达式为空时返回 nil（不过滤）；
// 编译失败或结果不是 bool 属于配置错误。
func NewSampleFilter(expr string) (*SampleFilter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInternalError, "init cel env")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.Wrap(issues.Err(), core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"compile filter %q", expr)
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"filter %q must return bool, got %s", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "program filter %q", expr)
	}
	return &SampleFilter{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (f *SampleFilter) String() string { return f.expr }

// Match 对单条样本求值。nil 过滤器总是返回 true。
func (f *SampleFilter) Match(s core.Sample) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{"sample": buildInput(s)})
	if err != nil {
		return false, core.Wrap(err, core.ModuleDataset, core.ErrorCodeInvalidInput, "eval filter %q", f.expr)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidInput,
			"filter %q must return bool, got %T", f.expr, out.Value())
	}
	return result, nil
}

func buildInput(s core.Sample) map[string]any {
	return map[string]any{
		"text":     s.Text,
		"pos_tag":  s.PosTag,
		"neg_tags": s.NegTags,
		"length":   int64(s.Length),
	}
}

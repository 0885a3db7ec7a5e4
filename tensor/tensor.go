// Package tensor 定义评估逻辑依赖的最小数值数组能力：构造、reshape、逐元素比较、求和、除法。
//
// 评估驱动只依赖 Array / Backend 两个接口，不感知具体数值后端（gonum、GPU 等）。
package tensor

import (
	"fmt"

	"github.com/rushteam/tagspace/core"
)

// Array 是不可变的 float 数组，带形状。所有运算返回新的 Array。
type Array interface {
	// Shape 返回形状的副本
	Shape() []int

	// Size 返回元素个数
	Size() int

	// Reshape 返回同一份数据的新形状视图；元素个数不一致时返回 SHAPE_MISMATCH。
	// 允许一个维度为 -1，由其余维度推导。
	Reshape(shape ...int) (Array, error)

	// Less 逐元素比较 a < b，结果为 1/0。两者形状必须一致。
	Less(b Array) (Array, error)

	// Sum 返回所有元素之和，形状为 [1]
	Sum() Array

	// Divide 逐元素相除。b 的形状与 a 一致，或者 b 只有一个元素（标量广播）。
	Divide(b Array) (Array, error)

	// Floats 以 float32 返回数据副本
	Floats() []float32
}

// Backend 负责在某个设备上构造 Array。
type Backend interface {
	// Name 返回后端名称（cpu / gpu ...）
	Name() string

	// FromFloats 由原始数据构造数组；len(data) 必须等于 shape 各维乘积
	FromFloats(data []float32, shape ...int) (Array, error)

	// Full 构造所有元素都为 value 的数组
	Full(value float32, shape ...int) (Array, error)
}

// Scalar 读取只有一个元素的数组。
func Scalar(a Array) (float32, error) {
	if a.Size() != 1 {
		return 0, core.Errorf(core.ModuleTensor, core.ErrorCodeShapeMismatch,
			"expected a single element, got shape %v", a.Shape())
	}
	return a.Floats()[0], nil
}

// numel 计算形状对应的元素个数，并解析 -1 维度。
func numel(shape []int, total int) ([]int, error) {
	out := make([]int, len(shape))
	copy(out, shape)
	infer := -1
	n := 1
	for i, d := range out {
		switch {
		case d == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("only one dimension can be -1, got %v", shape)
			}
			infer = i
		case d < 0:
			return nil, fmt.Errorf("invalid dimension %d in %v", d, shape)
		default:
			n *= d
		}
	}
	if infer >= 0 {
		if n == 0 || total%n != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements", shape, total)
		}
		out[infer] = total / n
		n = total
	}
	if total >= 0 && n != total {
		return nil, fmt.Errorf("shape %v holds %d elements, have %d", shape, n, total)
	}
	return out, nil
}

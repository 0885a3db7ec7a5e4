package tensor

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/tagspace/core"
)

// CPU 是基于 gonum 的 CPU 后端名称。
const CPU = "cpu"

func init() {
	Register(CPU, GonumBackend{})
}

// GonumBackend 用 gonum 的 VecDense 承载数据，所有运算在 CPU 上完成。
type GonumBackend struct{}

func (GonumBackend) Name() string { return CPU }

func (GonumBackend) FromFloats(data []float32, shape ...int) (Array, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	s, err := numel(shape, len(data))
	if err != nil {
		return nil, core.Wrap(err, core.ModuleTensor, core.ErrorCodeShapeMismatch, "construct array")
	}
	raw := make([]float64, len(data))
	for i, v := range data {
		raw[i] = float64(v)
	}
	return newDense(raw, s), nil
}

func (GonumBackend) Full(value float32, shape ...int) (Array, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, core.Errorf(core.ModuleTensor, core.ErrorCodeShapeMismatch, "invalid shape %v", shape)
		}
		n *= d
	}
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = float64(value)
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return newDense(raw, s), nil
}

type dense struct {
	vec   *mat.VecDense
	shape []int
}

func newDense(data []float64, shape []int) *dense {
	d := &dense{shape: shape}
	if len(data) > 0 {
		d.vec = mat.NewVecDense(len(data), data)
	}
	return d
}

func (d *dense) raw() []float64 {
	if d.vec == nil {
		return nil
	}
	return d.vec.RawVector().Data
}

func (d *dense) Shape() []int {
	s := make([]int, len(d.shape))
	copy(s, d.shape)
	return s
}

func (d *dense) Size() int {
	if d.vec == nil {
		return 0
	}
	return d.vec.Len()
}

func (d *dense) Reshape(shape ...int) (Array, error) {
	s, err := numel(shape, d.Size())
	if err != nil {
		return nil, core.Wrap(err, core.ModuleTensor, core.ErrorCodeShapeMismatch, "reshape %v", d.shape)
	}
	return &dense{vec: d.vec, shape: s}, nil
}

func (d *dense) other(b Array, op string) (*dense, error) {
	o, ok := b.(*dense)
	if !ok {
		return nil, core.Errorf(core.ModuleTensor, core.ErrorCodeNotSupported,
			"%s: cannot mix backends (%T)", op, b)
	}
	return o, nil
}

func (d *dense) Less(b Array) (Array, error) {
	o, err := d.other(b, "less")
	if err != nil {
		return nil, err
	}
	if !sameShape(d.shape, o.shape) {
		return nil, core.Errorf(core.ModuleTensor, core.ErrorCodeShapeMismatch,
			"less: shape %v vs %v", d.shape, o.shape)
	}
	x, y := d.raw(), o.raw()
	out := make([]float64, len(x))
	for i := range x {
		if x[i] < y[i] {
			out[i] = 1
		}
	}
	return newDense(out, d.Shape()), nil
}

func (d *dense) Sum() Array {
	return newDense([]float64{floats.Sum(d.raw())}, []int{1})
}

func (d *dense) Divide(b Array) (Array, error) {
	o, err := d.other(b, "divide")
	if err != nil {
		return nil, err
	}
	if d.vec == nil {
		return newDense(nil, d.Shape()), nil
	}
	out := mat.NewVecDense(d.Size(), nil)
	switch {
	case o.Size() == 1:
		out.ScaleVec(1/o.raw()[0], d.vec)
	case sameShape(d.shape, o.shape):
		out.DivElemVec(d.vec, o.vec)
	default:
		return nil, core.Errorf(core.ModuleTensor, core.ErrorCodeShapeMismatch,
			"divide: shape %v vs %v", d.shape, o.shape)
	}
	return &dense{vec: out, shape: d.Shape()}, nil
}

func (d *dense) Floats() []float32 {
	x := d.raw()
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

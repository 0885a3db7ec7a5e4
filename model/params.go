package model

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/tagspace/core"
)

// 参数名称，与 checkpoint 中的张量名一一对应。
const (
	ParamTextEmb = "text_emb.weight"
	ParamTagEmb  = "tag_emb.weight"
	ParamConvW   = "conv.weight"
	ParamConvB   = "conv.bias"
	ParamFCW     = "hid_fc.weight"
	ParamFCB     = "hid_fc.bias"
)

// Tensor 是一个命名参数的原始内容：行优先的数据加形状。
type Tensor struct {
	Shape []int
	Data  []float64
}

// Params 是一次 checkpoint 恢复出来的参数快照，加载后不再修改。
type Params struct {
	TextEmb *mat.Dense // [vocab_text_size, emb_dim]
	TagEmb  *mat.Dense // [vocab_tag_size, emb_dim]
	ConvW   *mat.Dense // [win_size*emb_dim, hid_dim]
	ConvB   []float64  // [hid_dim]
	FCW     *mat.Dense // [hid_dim, emb_dim]
	FCB     []float64  // [emb_dim]
}

// ParamShapes 返回给定超参数下每个参数的期望形状。
func ParamShapes(h Hyper) map[string][]int {
	return map[string][]int{
		ParamTextEmb: {h.VocabTextSize, h.EmbDim},
		ParamTagEmb:  {h.VocabTagSize, h.EmbDim},
		ParamConvW:   {h.WinSize * h.EmbDim, h.HidDim},
		ParamConvB:   {h.HidDim},
		ParamFCW:     {h.HidDim, h.EmbDim},
		ParamFCB:     {h.EmbDim},
	}
}

// ParamNames 返回排好序的参数名。
func ParamNames() []string {
	names := []string{ParamTextEmb, ParamTagEmb, ParamConvW, ParamConvB, ParamFCW, ParamFCB}
	sort.Strings(names)
	return names
}

// ParamsFromTensors 按超参数校验每个张量的存在性与形状，并组装成参数快照。
// 输入数据会被复制，调用方之后修改 tensors 不影响快照。
func ParamsFromTensors(h Hyper, tensors map[string]Tensor) (*Params, error) {
	shapes := ParamShapes(h)
	for _, name := range ParamNames() {
		t, ok := tensors[name]
		if !ok {
			return nil, core.Errorf(core.ModuleModel, core.ErrorCodeNotFound, "parameter %s missing", name)
		}
		want := shapes[name]
		if !equalShape(t.Shape, want) {
			return nil, core.Errorf(core.ModuleModel, core.ErrorCodeShapeMismatch,
				"parameter %s: shape %v, want %v", name, t.Shape, want)
		}
		if len(t.Data) != volume(want) {
			return nil, core.Errorf(core.ModuleModel, core.ErrorCodeShapeMismatch,
				"parameter %s: %d values for shape %v", name, len(t.Data), want)
		}
	}

	matrix := func(name string) *mat.Dense {
		t := tensors[name]
		return mat.NewDense(t.Shape[0], t.Shape[1], clone(t.Data))
	}
	return &Params{
		TextEmb: matrix(ParamTextEmb),
		TagEmb:  matrix(ParamTagEmb),
		ConvW:   matrix(ParamConvW),
		ConvB:   clone(tensors[ParamConvB].Data),
		FCW:     matrix(ParamFCW),
		FCB:     clone(tensors[ParamFCB].Data),
	}, nil
}

// Tensors 把快照展开成命名张量，供 checkpoint 写出。
func (p *Params) Tensors() map[string]Tensor {
	fromMatrix := func(m *mat.Dense) Tensor {
		r, c := m.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, m.RawRowView(i)...)
		}
		return Tensor{Shape: []int{r, c}, Data: data}
	}
	return map[string]Tensor{
		ParamTextEmb: fromMatrix(p.TextEmb),
		ParamTagEmb:  fromMatrix(p.TagEmb),
		ParamConvW:   fromMatrix(p.ConvW),
		ParamConvB:   {Shape: []int{len(p.ConvB)}, Data: clone(p.ConvB)},
		ParamFCW:     fromMatrix(p.FCW),
		ParamFCB:     {Shape: []int{len(p.FCB)}, Data: clone(p.FCB)},
	}
}

// InitParams 生成一组均匀分布在 [-scale, scale] 的随机参数，用于测试和样例 checkpoint。
func InitParams(h Hyper, seed uint64, scale float64) (*Params, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	shapes := ParamShapes(h)
	tensors := make(map[string]Tensor, len(shapes))
	for _, name := range ParamNames() {
		shape := shapes[name]
		data := make([]float64, volume(shape))
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * scale
		}
		tensors[name] = Tensor{Shape: shape, Data: data}
	}
	return ParamsFromTensors(h, tensors)
}

func equalShape(a, b []int) bool {
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

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func clone(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/tensor"
)

// TagSpaceModel 是 TagSpace 文本-标签 embedding 排序模型。
//
// 结构：
//   - 文本侧：词 embedding → 序列卷积（窗口 win_size，零填充）+ tanh → 时间维 max pool → 全连接到 emb_dim
//   - 标签侧：标签 embedding
//   - 打分：文本向量与正标签的余弦相似度，以及与所有负标签中最大的余弦相似度（最难负例）
//
// 模型本身不可变：WithParams 返回绑定新参数的副本，同一个 Hyper 可以依次挂载多个 epoch 的 checkpoint。
type TagSpaceModel struct {
	hyper   Hyper
	backend tensor.Backend
	params  *Params
}

var _ ScoringModel = (*TagSpaceModel)(nil)

// Option 配置 TagSpaceModel。
type Option func(*TagSpaceModel)

// WithBackend 指定输出相似度所用的张量后端，默认 cpu。
func WithBackend(b tensor.Backend) Option {
	return func(m *TagSpaceModel) {
		if b != nil {
			m.backend = b
		}
	}
}

// New 校验超参数并构造一个尚未加载参数的模型。
func New(h Hyper, opts ...Option) (*TagSpaceModel, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	m := &TagSpaceModel{hyper: h}
	for _, opt := range opts {
		opt(m)
	}
	if m.backend == nil {
		m.backend, _ = tensor.SetDevice(false)
	}
	return m, nil
}

func (m *TagSpaceModel) Name() string { return "tagspace" }

// Hyper 返回模型超参数。
func (m *TagSpaceModel) Hyper() Hyper { return m.hyper }

// Backend 返回输出所用的张量后端。
func (m *TagSpaceModel) Backend() tensor.Backend { return m.backend }

// WithParams 返回绑定了参数快照 p 的新模型，原模型不变。
func (m *TagSpaceModel) WithParams(p *Params) *TagSpaceModel {
	cp := *m
	cp.params = p
	return &cp
}

// Forward 对一个 batch 打分，返回形状为 [B, 1] 的 cos_pos 与 cos_neg。
func (m *TagSpaceModel) Forward(b *core.Batch) (ScorePair, error) {
	if m.params == nil {
		return ScorePair{}, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"model has no parameters loaded")
	}
	h := m.hyper
	if err := b.Validate(h.TextLen, h.NegSize); err != nil {
		return ScorePair{}, err
	}
	if err := m.checkIDs(b); err != nil {
		return ScorePair{}, err
	}

	textHid := m.encodeText(b)

	pos := make([]float32, b.Size)
	neg := make([]float32, b.Size)
	for i := 0; i < b.Size; i++ {
		v := textHid.RawRowView(i)
		pos[i] = float32(cosine(v, m.params.TagEmb.RawRowView(int(b.PosTag[i]))))
		best := math.Inf(-1)
		for _, tag := range b.NegRow(i, h.NegSize) {
			if c := cosine(v, m.params.TagEmb.RawRowView(int(tag))); c > best {
				best = c
			}
		}
		neg[i] = float32(best)
	}

	cosPos, err := m.backend.FromFloats(pos, b.Size, 1)
	if err != nil {
		return ScorePair{}, err
	}
	cosNeg, err := m.backend.FromFloats(neg, b.Size, 1)
	if err != nil {
		return ScorePair{}, err
	}
	return ScorePair{CosPos: cosPos, CosNeg: cosNeg}, nil
}

func (m *TagSpaceModel) checkIDs(b *core.Batch) error {
	h := m.hyper
	for i, id := range b.Text {
		if id < 0 || id >= int64(h.VocabTextSize) {
			return core.Errorf(core.ModuleModel, core.ErrorCodeInvalidInput,
				"sample %d: text token %d out of vocabulary [0, %d)", i/h.TextLen, id, h.VocabTextSize)
		}
	}
	check := func(i int, id int64) error {
		if id < 0 || id >= int64(h.VocabTagSize) {
			return core.Errorf(core.ModuleModel, core.ErrorCodeInvalidInput,
				"sample %d: tag %d out of vocabulary [0, %d)", i, id, h.VocabTagSize)
		}
		return nil
	}
	for i, id := range b.PosTag {
		if err := check(i, id); err != nil {
			return err
		}
	}
	for i, id := range b.NegTag {
		if err := check(i/h.NegSize, id); err != nil {
			return err
		}
	}
	return nil
}

// encodeText 计算文本侧表示，返回 [B, emb_dim]。
func (m *TagSpaceModel) encodeText(b *core.Batch) *mat.Dense {
	h := m.hyper
	p := m.params
	emb, win, length := h.EmbDim, h.WinSize, h.TextLen
	start := -(win / 2)

	// 展开卷积上下文：每个时间步一行，拼接 win 个相邻词向量，越界补零
	ctx := mat.NewDense(b.Size*length, win*emb, nil)
	for i := 0; i < b.Size; i++ {
		row := b.TextRow(i, length)
		for t := 0; t < length; t++ {
			dst := ctx.RawRowView(i*length + t)
			for k := 0; k < win; k++ {
				pos := t + start + k
				if pos < 0 || pos >= length {
					continue
				}
				copy(dst[k*emb:(k+1)*emb], p.TextEmb.RawRowView(int(row[pos])))
			}
		}
	}

	var conv mat.Dense
	conv.Mul(ctx, p.ConvW)
	conv.Apply(func(_, j int, v float64) float64 {
		return math.Tanh(v + p.ConvB[j])
	}, &conv)

	// 时间维 max pool
	pooled := mat.NewDense(b.Size, h.HidDim, nil)
	for i := 0; i < b.Size; i++ {
		dst := pooled.RawRowView(i)
		copy(dst, conv.RawRowView(i*length))
		for t := 1; t < length; t++ {
			src := conv.RawRowView(i*length + t)
			for j, v := range src {
				if v > dst[j] {
					dst[j] = v
				}
			}
		}
	}

	var out mat.Dense
	out.Mul(pooled, p.FCW)
	for i := 0; i < b.Size; i++ {
		floats.Add(out.RawRowView(i), p.FCB)
	}
	return &out
}

// cosine 计算余弦相似度，任一向量为零向量时返回 0。
func cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

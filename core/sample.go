package core

// Sample 是测试集中的一条样本：定长文本 token、一个正标签、neg_size 个负标签。
type Sample struct {
	Text    []int64
	PosTag  int64
	NegTags []int64

	// Length 是补齐/截断前的 token 数，仅供过滤表达式使用
	Length int
}

// Batch 是按 batch 主序展开的三组并行数组。
//
//	Text:   Size * text_len
//	PosTag: Size
//	NegTag: Size * neg_size
type Batch struct {
	Text   []int64
	PosTag []int64
	NegTag []int64
	Size   int
}

// NewBatch 把样本按顺序拼成一个 Batch。
func NewBatch(samples []Sample) *Batch {
	b := &Batch{Size: len(samples)}
	if len(samples) == 0 {
		return b
	}
	b.Text = make([]int64, 0, len(samples)*len(samples[0].Text))
	b.PosTag = make([]int64, 0, len(samples))
	b.NegTag = make([]int64, 0, len(samples)*len(samples[0].NegTags))
	for _, s := range samples {
		b.Text = append(b.Text, s.Text...)
		b.PosTag = append(b.PosTag, s.PosTag)
		b.NegTag = append(b.NegTag, s.NegTags...)
	}
	return b
}

// Validate 校验三组数组共享同一个 batch 维度，且与 text_len / neg_size 一致。
func (b *Batch) Validate(textLen, negSize int) error {
	if b.Size <= 0 {
		return Errorf(ModuleDataset, ErrorCodeShapeMismatch, "batch is empty")
	}
	if len(b.Text) != b.Size*textLen {
		return Errorf(ModuleDataset, ErrorCodeShapeMismatch,
			"cannot reshape text of %d ids to [%d, %d]", len(b.Text), b.Size, textLen)
	}
	if len(b.PosTag) != b.Size {
		return Errorf(ModuleDataset, ErrorCodeShapeMismatch,
			"cannot reshape pos_tag of %d ids to [%d, 1]", len(b.PosTag), b.Size)
	}
	if len(b.NegTag) != b.Size*negSize {
		return Errorf(ModuleDataset, ErrorCodeShapeMismatch,
			"cannot reshape neg_tag of %d ids to [%d, %d]", len(b.NegTag), b.Size, negSize)
	}
	return nil
}

// TextRow 返回第 i 条样本的文本 token。
func (b *Batch) TextRow(i, textLen int) []int64 {
	return b.Text[i*textLen : (i+1)*textLen]
}

// NegRow 返回第 i 条样本的负标签。
func (b *Batch) NegRow(i, negSize int) []int64 {
	return b.NegTag[i*negSize : (i+1)*negSize]
}

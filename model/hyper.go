package model

import (
	"github.com/rushteam/tagspace/config"
	"github.com/rushteam/tagspace/core"
)

// Hyper 是 TagSpace 模型的超参数，对应配置中的 hyper_parameters.*。
type Hyper struct {
	VocabTextSize int     // 文本词表大小
	VocabTagSize  int     // 标签词表大小
	EmbDim        int     // 文本/标签 embedding 维度
	HidDim        int     // 卷积输出通道数
	WinSize       int     // 卷积窗口大小
	Margin        float64 // hinge loss 的 margin，推理阶段只参与构造
	NegSize       int     // 每条样本的负标签数
	TextLen       int     // 文本定长
}

// 默认值（与训练配置保持一致）
const (
	DefaultMargin  = 0.1
	DefaultWinSize = 3
)

// HyperFromConfig 从配置读取超参数。
func HyperFromConfig(cfg *config.Config) (Hyper, error) {
	r := cfg.Reader()
	h := Hyper{
		VocabTextSize: r.RequireInt("hyper_parameters.vocab_text_size"),
		VocabTagSize:  r.RequireInt("hyper_parameters.vocab_tag_size"),
		EmbDim:        r.RequireInt("hyper_parameters.emb_dim"),
		HidDim:        r.RequireInt("hyper_parameters.hid_dim"),
		WinSize:       r.Int("hyper_parameters.win_size", DefaultWinSize),
		Margin:        r.Float("hyper_parameters.margin", DefaultMargin),
		NegSize:       r.RequireInt("hyper_parameters.neg_size"),
		TextLen:       r.RequireInt("hyper_parameters.text_len"),
	}
	if err := r.Err(); err != nil {
		return Hyper{}, err
	}
	if err := h.Validate(); err != nil {
		return Hyper{}, err
	}
	return h, nil
}

// Validate 校验超参数取值范围。
func (h Hyper) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"vocab_text_size", h.VocabTextSize},
		{"vocab_tag_size", h.VocabTagSize},
		{"emb_dim", h.EmbDim},
		{"hid_dim", h.HidDim},
		{"win_size", h.WinSize},
		{"neg_size", h.NegSize},
		{"text_len", h.TextLen},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				"hyper_parameters.%s must be positive, got %d", c.name, c.value)
		}
	}
	if h.VocabTagSize < 2 {
		// 负采样需要至少两个标签
		return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"hyper_parameters.vocab_tag_size must be at least 2, got %d", h.VocabTagSize)
	}
	return nil
}

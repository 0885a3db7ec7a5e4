package model

import (
	"math"
	"testing"

	"github.com/rushteam/tagspace/config"
	"github.com/rushteam/tagspace/core"
)

func tinyHyper() Hyper {
	return Hyper{
		VocabTextSize: 3,
		VocabTagSize:  3,
		EmbDim:        2,
		HidDim:        2,
		WinSize:       1,
		Margin:        DefaultMargin,
		NegSize:       1,
		TextLen:       2,
	}
}

func tinyParams(t *testing.T, h Hyper) *Params {
	t.Helper()
	p, err := ParamsFromTensors(h, map[string]Tensor{
		ParamTextEmb: {Shape: []int{3, 2}, Data: []float64{0, 0, 1, 0, 0, 1}},
		ParamTagEmb:  {Shape: []int{3, 2}, Data: []float64{1, 1, 1, 0, -1, -1}},
		ParamConvW:   {Shape: []int{2, 2}, Data: []float64{1, 0, 0, 1}},
		ParamConvB:   {Shape: []int{2}, Data: []float64{0, 0}},
		ParamFCW:     {Shape: []int{2, 2}, Data: []float64{1, 0, 0, 1}},
		ParamFCB:     {Shape: []int{2}, Data: []float64{0, 0}},
	})
	if err != nil {
		t.Fatalf("ParamsFromTensors() error = %v", err)
	}
	return p
}

func TestForwardHandComputed(t *testing.T) {
	h := tinyHyper()
	m, err := New(h)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m = m.WithParams(tinyParams(t, h))

	b := core.NewBatch([]core.Sample{
		{Text: []int64{1, 2}, PosTag: 0, NegTags: []int64{1}},
		{Text: []int64{1, 0}, PosTag: 1, NegTags: []int64{2}},
	})
	out, err := m.Forward(b)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	inv := float32(1 / math.Sqrt2)
	tests := []struct {
		name string
		got  []float32
		want []float32
	}{
		{"cos_pos", out.CosPos.Floats(), []float32{1, 1}},
		{"cos_neg", out.CosNeg.Floats(), []float32{inv, -inv}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(tt.got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(tt.got[i]-tt.want[i])) > 1e-5 {
					t.Errorf("[%d] = %v, want %v", i, tt.got[i], tt.want[i])
				}
			}
		})
	}
	if s := out.CosPos.Shape(); len(s) != 2 || s[0] != 2 || s[1] != 1 {
		t.Errorf("cos_pos shape = %v, want [2 1]", s)
	}
}

func TestForwardHardestNegative(t *testing.T) {
	h := tinyHyper()
	h.NegSize = 2
	m, _ := New(h)
	m = m.WithParams(tinyParams(t, h))

	// 文本向量 [t, t]：与 tag0 完全同向，tag2 完全反向
	b := core.NewBatch([]core.Sample{{Text: []int64{1, 2}, PosTag: 1, NegTags: []int64{2, 0}}})
	out, err := m.Forward(b)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if got := out.CosNeg.Floats()[0]; math.Abs(float64(got-1)) > 1e-5 {
		t.Errorf("cos_neg = %v, want max over negatives = 1", got)
	}
}

func TestForwardErrors(t *testing.T) {
	h := tinyHyper()
	bare, _ := New(h)
	loaded := bare.WithParams(tinyParams(t, h))

	tests := []struct {
		name  string
		model *TagSpaceModel
		batch *core.Batch
		check func(error) bool
	}{
		{
			name:  "no params",
			model: bare,
			batch: core.NewBatch([]core.Sample{{Text: []int64{1, 2}, PosTag: 0, NegTags: []int64{1}}}),
			check: core.IsInvalidInput,
		},
		{
			name:  "token out of range",
			model: loaded,
			batch: core.NewBatch([]core.Sample{{Text: []int64{1, 7}, PosTag: 0, NegTags: []int64{1}}}),
			check: core.IsInvalidInput,
		},
		{
			name:  "tag out of range",
			model: loaded,
			batch: core.NewBatch([]core.Sample{{Text: []int64{1, 2}, PosTag: 0, NegTags: []int64{3}}}),
			check: core.IsInvalidInput,
		},
		{
			name:  "wrong text length",
			model: loaded,
			batch: core.NewBatch([]core.Sample{{Text: []int64{1}, PosTag: 0, NegTags: []int64{1}}}),
			check: core.IsShapeMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.model.Forward(tt.batch); !tt.check(err) {
				t.Errorf("Forward() error = %v", err)
			}
		})
	}
}

func TestRandomParamsScoresInRange(t *testing.T) {
	h := Hyper{VocabTextSize: 20, VocabTagSize: 5, EmbDim: 4, HidDim: 6, WinSize: 3, NegSize: 3, TextLen: 5}
	p, err := InitParams(h, 7, 0.5)
	if err != nil {
		t.Fatalf("InitParams() error = %v", err)
	}
	m, _ := New(h)
	m = m.WithParams(p)

	b := core.NewBatch([]core.Sample{
		{Text: []int64{1, 2, 3, 0, 0}, PosTag: 4, NegTags: []int64{0, 1, 2}},
		{Text: []int64{19, 18, 17, 16, 15}, PosTag: 0, NegTags: []int64{3, 2, 1}},
	})
	out, err := m.Forward(b)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	for _, v := range append(out.CosPos.Floats(), out.CosNeg.Floats()...) {
		if v < -1-1e-6 || v > 1+1e-6 {
			t.Errorf("score %v outside [-1, 1]", v)
		}
	}
}

func TestWithParamsDoesNotMutate(t *testing.T) {
	h := tinyHyper()
	base, _ := New(h)
	_ = base.WithParams(tinyParams(t, h))
	if base.params != nil {
		t.Error("WithParams mutated the receiver")
	}
}

func TestParamsFromTensorsShape(t *testing.T) {
	h := tinyHyper()
	tensors := tinyParams(t, h).Tensors()
	tensors[ParamFCB] = Tensor{Shape: []int{3}, Data: []float64{0, 0, 0}}
	if _, err := ParamsFromTensors(h, tensors); !core.IsShapeMismatch(err) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
	delete(tensors, ParamFCB)
	if _, err := ParamsFromTensors(h, tensors); !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHyperFromConfig(t *testing.T) {
	cfg := config.FromMap(map[string]any{
		"hyper_parameters": map[string]any{
			"vocab_text_size": 100,
			"vocab_tag_size":  10,
			"emb_dim":         8,
			"hid_dim":         16,
			"neg_size":        3,
			"text_len":        12,
		},
	})
	h, err := HyperFromConfig(cfg)
	if err != nil {
		t.Fatalf("HyperFromConfig() error = %v", err)
	}
	if h.WinSize != DefaultWinSize || h.Margin != DefaultMargin {
		t.Errorf("defaults not applied: %+v", h)
	}

	bad := config.FromMap(map[string]any{
		"hyper_parameters": map[string]any{
			"vocab_text_size": 100,
			"vocab_tag_size":  1,
			"emb_dim":         8,
			"hid_dim":         16,
			"neg_size":        3,
			"text_len":        12,
		},
	})
	if _, err := HyperFromConfig(bad); !core.IsConfigError(err) {
		t.Errorf("expected config error for a single tag, got %v", err)
	}
	if _, err := HyperFromConfig(config.FromMap(map[string]any{})); !core.IsConfigError(err) {
		t.Errorf("expected config error for missing keys, got %v", err)
	}
}

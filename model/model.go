package model

import (
	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/tensor"
)

// ScoringModel 是评估阶段的最小抽象：输入一个 batch，输出 (cos_pos, cos_neg) 两组相似度。
// 具体实现可以是本地模型（TagSpace）或其他 embedding 排序模型。
type ScoringModel interface {
	Name() string
	Forward(b *core.Batch) (ScorePair, error)
}

// ScorePair 是一次前向的输出：每条样本一个正标签相似度和一个负标签相似度，形状均为 [B, 1]。
type ScorePair struct {
	CosPos tensor.Array
	CosNeg tensor.Array
}

// Package tagspace 是 TagSpace 文本-标签排序模型的离线评估工具。
//
// 设计要点：
// - 参数快照不可变：checkpoint.Loader 每个 epoch 返回新的 model.Params，模型通过 WithParams 绑定
// - 数值后端可替换：评估逻辑只依赖 tensor.Array / tensor.Backend
// - 日志显式构造：logger 由调用方创建并传入，不修改全局状态
package tagspace

import (
	"github.com/rushteam/tagspace/eval"
	"github.com/rushteam/tagspace/model"
)

// 轻量 facade：便于用户直接 import "tagspace" 使用核心抽象。
type Evaluator = eval.Evaluator
type EpochResult = eval.EpochResult
type Hyper = model.Hyper
type Params = model.Params

var (
	NewFromConfig     = eval.NewFromConfig
	OptionsFromConfig = eval.OptionsFromConfig
	RankingAccuracy   = eval.RankingAccuracy
	EpochRange        = eval.EpochRange
)

// Package eval 驱动 TagSpace 模型的离线评估：逐 epoch 恢复参数、遍历测试集、
// 计算每个 batch 的排序准确率并输出进度与汇总日志。
package eval

import (
	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/tensor"
)

// RankingAccuracy 统计 neg[i] < pos[i] 的样本数并除以 batchSize，相等不算正确，结果在 [0, 1]。
// 最后一个不满的 batch 同样除以 batchSize，与训练脚本的 get_acc 一致。
// 使用 cpu 后端构造分母。
func RankingAccuracy(neg, pos tensor.Array, batchSize int) (float32, error) {
	backend, _ := tensor.SetDevice(false)
	return RankingAccuracyOn(backend, neg, pos, batchSize)
}

// RankingAccuracyOn 与 RankingAccuracy 相同，分母在指定后端上构造。
// 计算只经过 tensor.Array 接口：less → sum → divide。
func RankingAccuracyOn(backend tensor.Backend, neg, pos tensor.Array, batchSize int) (float32, error) {
	if batchSize <= 0 {
		return 0, core.Errorf(core.ModuleEval, core.ErrorCodeShapeMismatch,
			"batch size must be positive, got %d", batchSize)
	}
	n := neg.Size()
	if n == 0 || n != pos.Size() || n > batchSize {
		return 0, core.Errorf(core.ModuleEval, core.ErrorCodeShapeMismatch,
			"scores of %d and %d values for batch size %d", neg.Size(), pos.Size(), batchSize)
	}
	neg, err := neg.Reshape(n, 1)
	if err != nil {
		return 0, err
	}
	pos, err = pos.Reshape(n, 1)
	if err != nil {
		return 0, err
	}

	less, err := neg.Less(pos)
	if err != nil {
		return 0, err
	}
	ones, err := backend.Full(1, batchSize, 1)
	if err != nil {
		return 0, err
	}
	acc, err := less.Sum().Divide(ones.Sum())
	if err != nil {
		return 0, err
	}
	return tensor.Scalar(acc)
}

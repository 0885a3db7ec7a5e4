package eval

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/tagspace/checkpoint"
	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/dataset"
	"github.com/rushteam/tagspace/model"
	"github.com/rushteam/tagspace/tensor"
)

// EpochResult 是一个 epoch 的评估结果。
type EpochResult struct {
	Epoch int

	// LastAccuracy 是最后一个 batch 的准确率（分母为 batch_size_infer），即 epoch 汇总日志中的 acc
	LastAccuracy float32

	// MeanAccuracy 是按样本数加权的整个 epoch 的准确率
	MeanAccuracy float64

	Batches   int
	Instances int
	Elapsed   time.Duration
}

// EpochRange 返回 (start, end) 开区间内的 epoch：start+1 .. end-1。
func EpochRange(start, end int) []int {
	if end <= start+1 {
		return nil
	}
	out := make([]int, 0, end-start-1)
	for e := start + 1; e < end; e++ {
		out = append(out, e)
	}
	return out
}

// ShouldLog 判断 batchID（从 0 开始）是否需要输出进度日志。
func ShouldLog(batchID, interval int) bool {
	return interval > 0 && batchID%interval == 0
}

// Evaluator 持有一次评估运行所需的全部组件。
type Evaluator struct {
	opts    Options
	model   *model.TagSpaceModel
	data    *dataset.Loader
	ckpt    *checkpoint.Loader
	backend tensor.Backend
	log     *zap.SugaredLogger
	metrics *Metrics

	now func() time.Time
}

// NewEvaluator 组装评估器。opts.MetricsTextfile 非空时启用指标导出。
func NewEvaluator(opts Options, m *model.TagSpaceModel, data *dataset.Loader, ckpt *checkpoint.Loader, logger *zap.Logger) (*Evaluator, error) {
	if m == nil || data == nil || ckpt == nil {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeInvalidInput, "model, data loader and checkpoint loader are required")
	}
	if opts.PrintInterval < 1 {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"dygraph.print_interval must be >= 1, got %d", opts.PrintInterval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		opts:    opts,
		model:   m,
		data:    data,
		ckpt:    ckpt,
		backend: m.Backend(),
		log:     logger.Sugar(),
		now:     time.Now,
	}
	if opts.MetricsTextfile != "" {
		e.metrics = NewMetrics()
	}
	return e, nil
}

// Metrics 返回指标集合，未启用时为 nil。
func (e *Evaluator) Metrics() *Metrics { return e.metrics }

// Close 释放 checkpoint 来源（例如 Redis 连接）。
func (e *Evaluator) Close() error { return e.ckpt.Close() }

// Run 依次评估 [infer_start_epoch+1, infer_end_epoch) 中的每个 epoch。
// 任一 epoch 出错立即返回，已完成的 epoch 结果一并返回。
func (e *Evaluator) Run(ctx context.Context) ([]EpochResult, error) {
	var results []EpochResult
	for _, epoch := range EpochRange(e.opts.StartEpoch, e.opts.EndEpoch) {
		res, err := e.runEpoch(ctx, epoch)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if e.metrics != nil {
			e.metrics.Observe(res)
		}
	}
	if e.metrics != nil {
		if err := e.metrics.WriteTextfile(e.opts.MetricsTextfile); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (e *Evaluator) runEpoch(ctx context.Context, epoch int) (EpochResult, error) {
	e.log.Infof("load model epoch %d", epoch)
	params, err := e.ckpt.Load(ctx, epoch)
	if err != nil {
		return EpochResult{}, err
	}
	m := e.model.WithParams(params)

	res := EpochResult{Epoch: epoch}
	batchSize := e.data.BatchSize()
	var correct float64
	epochBegin := e.now()
	intervalBegin := epochBegin

	err = e.data.Iterate(ctx, func(batchID int, b *core.Batch) error {
		out, err := m.Forward(b)
		if err != nil {
			return err
		}
		acc, err := RankingAccuracyOn(e.backend, out.CosNeg, out.CosPos, batchSize)
		if err != nil {
			return err
		}
		res.LastAccuracy = acc
		res.Batches++
		res.Instances += b.Size
		correct += math.Round(float64(acc) * float64(batchSize))

		if ShouldLog(batchID, e.opts.PrintInterval) {
			now := e.now()
			var speed float64
			if secs := now.Sub(intervalBegin).Seconds(); secs > 0 {
				speed = float64(e.opts.PrintInterval*batchSize) / secs
			}
			e.log.Infof("infer epoch: %d, batch_id: %d, acc: [%s], speed: %.2f ins/s", epoch, batchID, formatAcc(acc), speed)
			intervalBegin = now
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if res.Batches == 0 {
		return res, core.Errorf(core.ModuleEval, core.ErrorCodeInvalidInput,
			"epoch %d: test data produced no batches", epoch)
	}

	res.Elapsed = e.now().Sub(epochBegin)
	res.MeanAccuracy = correct / float64(res.Instances)
	e.log.Infof("infer epoch: %d done, acc: [%s], : epoch time%.2f s", epoch, formatAcc(res.LastAccuracy), res.Elapsed.Seconds())
	e.log.Infof("infer epoch: %d mean acc: %.6f, instances: %d", epoch, res.MeanAccuracy, res.Instances)
	return res, nil
}

// formatAcc 按 numpy 打印 float32 数组元素的方式输出准确率：整数值带小数点（1. / 0.），
// 其余取能还原 float32 的最短表示。
func formatAcc(acc float32) string {
	s := strconv.FormatFloat(float64(acc), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eEnN") {
		s += "."
	}
	return s
}

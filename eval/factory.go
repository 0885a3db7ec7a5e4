package eval

import (
	"context"

	"go.uber.org/zap"

	"github.com/rushteam/tagspace/checkpoint"
	"github.com/rushteam/tagspace/config"
	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/dataset"
	"github.com/rushteam/tagspace/model"
	"github.com/rushteam/tagspace/pkg/dsl"
	"github.com/rushteam/tagspace/store"
	"github.com/rushteam/tagspace/tensor"
)

// SourceBuilder 根据配置构造 checkpoint 来源。
type SourceBuilder func(ctx context.Context, opts Options) (checkpoint.Source, error)

// sourceBuilders 按 dygraph.infer_load_backend 取值注册。
var sourceBuilders = map[string]SourceBuilder{
	BackendFile:  buildDirSource,
	BackendRedis: buildRedisSource,
}

func buildDirSource(_ context.Context, opts Options) (checkpoint.Source, error) {
	return checkpoint.DirSource{Root: opts.LoadPath}, nil
}

func buildRedisSource(ctx context.Context, opts Options) (checkpoint.Source, error) {
	rs, err := store.NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB)
	if err != nil {
		return nil, err
	}
	return checkpoint.StoreSource{Store: rs, Root: opts.LoadPath}, nil
}

const banner = "***********************************"

// NewFromConfig 按配置组装评估器：选择设备、构造模型、打开测试集与 checkpoint 来源。
// 启动信息按训练脚本的格式输出。
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	hyper, err := model.HyperFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.Sugar()
	log.Info(banner)
	log.Infof("use_gpu: %s, test_data_dir: %s, epochs: %d, print_interval: %d, model_load_path: %s",
		pyBool(opts.UseGPU), opts.TestDataDir, opts.Epochs, opts.PrintInterval, opts.LoadPath)
	log.Info(banner)

	backend, fellBack := tensor.SetDevice(opts.UseGPU)
	if fellBack {
		logger.Warn("gpu backend not available, falling back to cpu",
			zap.Strings("supported", tensor.SupportedBackends()))
	}
	m, err := model.New(hyper, model.WithBackend(backend))
	if err != nil {
		return nil, err
	}

	if _, err := dataset.ListFiles(opts.TestDataDir); err != nil {
		return nil, err
	}
	log.Info("read data")
	filter, err := dsl.NewSampleFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	reader, err := dataset.NewReader(dataset.Options{
		Dir:          opts.TestDataDir,
		TextLen:      hyper.TextLen,
		NegSize:      hyper.NegSize,
		VocabTagSize: hyper.VocabTagSize,
		Seed:         opts.Seed,
		Filter:       filter,
	})
	if err != nil {
		return nil, err
	}
	data, err := dataset.NewLoader(reader, opts.BatchSize,
		dataset.DropLast(opts.DropLast), dataset.Prefetch(opts.Prefetch))
	if err != nil {
		return nil, err
	}

	build, ok := sourceBuilders[opts.LoadBackend]
	if !ok {
		return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"unknown checkpoint backend %q", opts.LoadBackend)
	}
	source, err := build(ctx, opts)
	if err != nil {
		return nil, err
	}
	ev, err := NewEvaluator(opts, m, data, checkpoint.NewLoader(hyper, source), logger)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return ev, nil
}

// pyBool 输出与训练脚本日志一致的 True/False。
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

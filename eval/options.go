package eval

import (
	"github.com/rushteam/tagspace/config"
	"github.com/rushteam/tagspace/dataset"
	"github.com/rushteam/tagspace/pkg/logging"
)

// checkpoint 来源
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// 默认值
const (
	DefaultLoadPath   = "increment_dygraph"
	DefaultStartEpoch = -1
	DefaultEndEpoch   = 1
	DefaultRedisAddr  = "127.0.0.1:6379"
)

// Options 汇总 dygraph.* 下与评估相关的配置。
type Options struct {
	UseGPU        bool
	TestDataDir   string
	Epochs        int // 只用于日志
	PrintInterval int
	LoadPath      string
	StartEpoch    int
	EndEpoch      int
	BatchSize     int

	Seed     uint64
	Filter   string
	DropLast bool
	Prefetch int

	LoadBackend string
	RedisAddr   string
	RedisDB     int

	MetricsTextfile string
	LogLevel        string
}

// OptionsFromConfig 读取并校验评估配置。
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	r := cfg.Reader()
	o := Options{
		UseGPU:        r.Bool("dygraph.use_gpu", false),
		TestDataDir:   r.RequireString("dygraph.test_data_dir"),
		Epochs:        r.Int("dygraph.epochs", 0),
		PrintInterval: r.RequireInt("dygraph.print_interval"),
		LoadPath:      r.String("dygraph.infer_load_path", DefaultLoadPath),
		StartEpoch:    r.Int("dygraph.infer_start_epoch", DefaultStartEpoch),
		EndEpoch:      r.Int("dygraph.infer_end_epoch", DefaultEndEpoch),
		BatchSize:     r.RequireInt("dygraph.batch_size_infer"),

		Filter:   r.String("dygraph.infer_filter", ""),
		DropLast: r.Bool("dygraph.drop_last", false),
		Prefetch: r.Int("dygraph.prefetch", dataset.DefaultPrefetch),

		LoadBackend: r.String("dygraph.infer_load_backend", BackendFile),
		RedisAddr:   r.String("dygraph.redis_addr", DefaultRedisAddr),
		RedisDB:     r.Int("dygraph.redis_db", 0),

		MetricsTextfile: r.String("dygraph.metrics_textfile", ""),
		LogLevel:        r.String("dygraph.log_level", logging.DefaultLevel),
	}
	seed := r.Int("dygraph.seed", dataset.DefaultSeed)
	if err := r.Err(); err != nil {
		return Options{}, err
	}

	switch {
	case o.PrintInterval < 1:
		r.Errorf("dygraph.print_interval must be >= 1, got %d", o.PrintInterval)
	case o.BatchSize < 1:
		r.Errorf("dygraph.batch_size_infer must be >= 1, got %d", o.BatchSize)
	case seed < 0:
		r.Errorf("dygraph.seed must be non-negative, got %d", seed)
	case o.LoadBackend != BackendFile && o.LoadBackend != BackendRedis:
		r.Errorf("dygraph.infer_load_backend must be %q or %q, got %q", BackendFile, BackendRedis, o.LoadBackend)
	}
	if err := r.Err(); err != nil {
		return Options{}, err
	}
	o.Seed = uint64(seed)
	return o, nil
}

// Command tagspace-infer 对训练好的 TagSpace 模型做离线评估。
//
// 用法：
//
//	tagspace-infer -m config.yaml
//
// 对 [dygraph.infer_start_epoch+1, dygraph.infer_end_epoch) 中的每个 epoch，
// 从 <dygraph.infer_load_path>/<epoch> 恢复参数，遍历 dygraph.test_data_dir 并输出排序准确率。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rushteam/tagspace/config"
	"github.com/rushteam/tagspace/eval"
	"github.com/rushteam/tagspace/pkg/logging"
)

// 构建信息，通过 -ldflags "-X main.version=..." 注入
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "tagspace-infer",
		Short:         "Evaluate TagSpace checkpoints on a test set",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config_yaml", "m", "", "path to the YAML config")
	_ = cmd.MarkFlagRequired("config_yaml")
	return cmd
}

func run(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	opts, err := eval.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := logging.New(out, opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ev, err := eval.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ev.Close()

	_, err = ev.Run(ctx)
	return err
}

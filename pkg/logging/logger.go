// Package logging 构造评估进程使用的 zap logger。
//
// 输出格式与训练脚本保持一致，便于用同一套脚本解析日志：
//
//	2006-01-02 15:04:05,000 - INFO - infer epoch: 0, batch_id: 0, acc: [0.5], speed: 120.00 ins/s
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rushteam/tagspace/core"
)

// TimeLayout 是日志时间戳格式（毫秒用逗号分隔）。
const TimeLayout = "2006-01-02 15:04:05,000"

// DefaultLevel 是默认日志级别。
const DefaultLevel = "info"

// EncoderConfig 返回 `时间 - 级别 - 消息` 格式的 console 编码配置。
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.SecondsDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

// New 创建写入 w 的 logger。level 为空时使用 info。
// 不修改 zap 的全局 logger，调用方负责 Sync。
func New(w io.Writer, level string) (*zap.Logger, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, core.Wrap(err, core.ModuleConfig, core.ErrorCodeInvalidConfig, "log level %q", level)
	}
	enc := zapcore.NewConsoleEncoder(EncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)), nil
}

package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel 是未配置 log_level 时的级别。
const DefaultLevel = "info"

// ParseLevel 解析 debug/info/warn/error（大小写不敏感）；空串视为 DefaultLevel。
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		s = DefaultLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("log_level 无效：%q", s)
	}
	return lvl, nil
}

// New 构造写到 w 的控制台格式 logger；w 为 nil 时写 stderr。
//
// 日志只走 stderr，stdout 留给状态行。
func New(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(w)),
		lvl,
	)
	return zap.New(core).Named("filemover"), nil
}

// Nop 返回丢弃一切的 logger（测试与未注入 logger 时使用）。
func Nop() *zap.Logger { return zap.NewNop() }

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLevel = "info"

var (
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process-wide logger writing coloured console lines to w.
// An empty levelName keeps the default level.
func Init(levelName string, w io.Writer) (*zap.SugaredLogger, error) {
	if w == nil {
		w = os.Stderr
	}
	if err := SetLevel(levelName); err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	global = zap.New(core).Sugar()
	return global, nil
}

// With replaces the global logger with one carrying the given fields.
func With(args ...interface{}) *zap.SugaredLogger {
	global = Logger().With(args...)
	return global
}

// SetLevel changes the level of the global logger at runtime.
func SetLevel(levelName string) error {
	levelName = strings.ToLower(strings.TrimSpace(levelName))
	if levelName == "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid log level %q: use debug, info, warn or error", levelName)
	}
	level.SetLevel(l)
	return nil
}

// Level reports the current level name.
func Level() string {
	return level.Level().String()
}

// Logger returns the global logger, or a no-op logger before Init.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

package sysutil

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op until InitLogger runs.
var Log = zap.NewNop()

// ParseLevel accepts the level names used in the config file (DEBUG, INFO,
// WARNING, ...), case-insensitively.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zap.DebugLevel, nil
	case "", "INFO":
		return zap.InfoLevel, nil
	case "WARN", "WARNING":
		return zap.WarnLevel, nil
	case "ERROR":
		return zap.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zap.FatalLevel, nil
	}
	return zap.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

func InitLogger(level zapcore.Level) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // ISO8601 timestamps
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // colored levels
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config.EncoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)
	SetLogger(zap.New(core, zap.AddCaller()))
}

// SetLogger replaces the package logger. Tests use it to install an observer.
func SetLogger(l *zap.Logger) {
	Log = l
}

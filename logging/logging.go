// Package logging builds the process zap logger: console output plus an
// optional size-rotated JSON file.
package logging

import (
	"fmt"
	"os"

	"github.com/kasuganosora/questengine/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger for cfg. Debug switches the console encoder to the
// development format and lowers the floor to debug.
func New(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if debug {
		level = zapcore.DebugLevel
	}

	var consoleEnc zapcore.Encoder
	if debug {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), level),
	}

	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(Rotator(cfg)),
			level,
		))
	}

	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// Rotator is the lumberjack writer behind the file core.
func Rotator(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   false,
	}
}

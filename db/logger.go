package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// zapWriter feeds gorm's printf-style logger into zap.
type zapWriter struct{ s *zap.SugaredLogger }

func (w zapWriter) Printf(format string, args ...any) { w.s.Warnf(format, args...) }

func newGormLogger(log *zap.Logger, slow time.Duration) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	return logger.New(zapWriter{s: log.Named("gorm").WithOptions(zap.AddCallerSkip(3)).Sugar()}, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

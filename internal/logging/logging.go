package logging

import (
	"strings"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// New builds a production zap logger at the given level; unknown levels mean info.
func New(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Temporal adapts zap to the Temporal SDK logger interface.
type Temporal struct {
	s *zap.SugaredLogger
}

var _ log.Logger = (*Temporal)(nil)

func NewTemporal(l *zap.Logger) *Temporal {
	return &Temporal{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (t *Temporal) Debug(msg string, keyvals ...interface{}) { t.s.Debugw(msg, keyvals...) }

func (t *Temporal) Info(msg string, keyvals ...interface{}) { t.s.Infow(msg, keyvals...) }

func (t *Temporal) Warn(msg string, keyvals ...interface{}) { t.s.Warnw(msg, keyvals...) }

func (t *Temporal) Error(msg string, keyvals ...interface{}) { t.s.Errorw(msg, keyvals...) }

func (t *Temporal) With(keyvals ...interface{}) log.Logger {
	return &Temporal{s: t.s.With(keyvals...)}
}

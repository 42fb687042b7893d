package utils

import "go.uber.org/zap"

// Logger is a thin key-value wrapper over zap's sugared logger.
type Logger struct {
	s *zap.SugaredLogger
}

func NewLogger() *Logger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{s: base.Sugar()}
}

// NewNopLogger discards everything (used in tests).
func NewNopLogger() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

func (l *Logger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.s.Fatalw(msg, kv...) }

func (l *Logger) Sync() { _ = l.s.Sync() }

package main

import (
	"go.uber.org/zap"

	"detgeom/internal/extract"
)

// zapLogger adapts a zap.SugaredLogger to the engine's logger
// interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ extract.Logger = zapLogger{}

func newZapLogger(l *zap.Logger) zapLogger {
	return zapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

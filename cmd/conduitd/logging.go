package main

import (
	"os"
	"path/filepath"

	"github.com/madcok-co/conduit/core/pkg/adapters/logger"
	"github.com/madcok-co/conduit/core/pkg/connector/config"
	"github.com/madcok-co/conduit/core/pkg/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newFileLogger builds a JSON zap.Logger writing to path, creating its
// parent directory if needed. Used for the two dispatch log destinations
// config.LogConfig names (API log, workflow/action log).
func newFileLogger(path, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// zapSugar adapts a *zap.SugaredLogger to the adapters/logger.ZapLogger
// interface so the daemon's HTTP request logging can reuse the same file
// sink as the dispatch loggers instead of introducing a second logging
// stack for the app framework.
type zapSugar struct {
	s *zap.SugaredLogger
}

func (z *zapSugar) Debug(msg string, fields ...any)          { z.s.Debugw(msg, fields...) }
func (z *zapSugar) Info(msg string, fields ...any)           { z.s.Infow(msg, fields...) }
func (z *zapSugar) Warn(msg string, fields ...any)           { z.s.Warnw(msg, fields...) }
func (z *zapSugar) Error(msg string, fields ...any)          { z.s.Errorw(msg, fields...) }
func (z *zapSugar) Fatal(msg string, fields ...any)          { z.s.Fatalw(msg, fields...) }
func (z *zapSugar) Sync() error                              { return z.s.Sync() }
func (z *zapSugar) With(fields ...any) logger.ZapLogger      { return &zapSugar{s: z.s.With(fields...)} }
func (z *zapSugar) Named(name string) logger.ZapLogger       { return &zapSugar{s: z.s.Named(name)} }

// contractsLogger wraps an API-log zap.Logger as contracts.Logger, the
// interface core/pkg/app's HTTP adapter and middleware log through.
func contractsLogger(z *zap.Logger, level string) contracts.Logger {
	driver := logger.WrapZap(&zapSugar{s: z.Sugar()}, nil)
	return logger.New(driver).WithLevel(logger.ParseLevel(level))
}

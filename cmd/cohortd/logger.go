package main

import (
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/story-squad/cohort"
	"github.com/story-squad/cohort/internal/logging"
)

// buildLogger creates the configured logger writing to w. The returned
// function flushes buffered entries.
func buildLogger(cfg cohort.LoggingConfig, w io.Writer) (cohort.Logger, func(), error) {
	switch cfg.Backend {
	case "zap":
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		var enc zapcore.Encoder
		if cfg.Format == "json" {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			enc = zapcore.NewConsoleEncoder(encCfg)
		}

		zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
		l := logging.NewZap(zl)

		return l, func() { _ = l.Sync() }, nil

	default:
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}

		opts := &slog.HandlerOptions{Level: level}
		var h slog.Handler
		if cfg.Format == "json" {
			h = slog.NewJSONHandler(w, opts)
		} else {
			h = slog.NewTextHandler(w, opts)
		}

		return logging.NewSlog(slog.New(h)), func() {}, nil
	}
}

package logging

import (
	"go.uber.org/zap"

	"github.com/story-squad/cohort/types"
)

// ZapLogger implements types.Logger on top of zap's sugared logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ types.Logger = (*ZapLogger)(nil)

// NewZap wraps a zap.Logger.
//
// Parameters:
//   - logger: Base zap logger (zap.NewNop() is used if nil)
//
// Returns:
//   - *ZapLogger: Logger forwarding to the sugared "w" methods
func NewZap(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ZapLogger{sugar: logger.Sugar()}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// Debug logs a debug-level message with optional key-value pairs.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info-level message with optional key-value pairs.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error-level message with optional key-value pairs.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Fatal logs a fatal-level message and exits.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

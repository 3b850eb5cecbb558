// Package logger provides the no-op and test loggers used as defaults.
package logger

import "github.com/story-squad/cohort/types"

// NopLogger discards all log messages. It is the partitioner's default logger.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a new no-op logger.
func NewNop() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (n *NopLogger) Debug(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

// Info discards the message.
func (n *NopLogger) Info(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

// Warn discards the message.
func (n *NopLogger) Warn(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

// Error discards the message.
func (n *NopLogger) Error(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

// Fatal discards the message and does NOT exit.
func (n *NopLogger) Fatal(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

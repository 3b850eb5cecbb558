package logger

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/story-squad/cohort/types"
)

// TestLogger writes to testing.T and keeps the messages for assertions.
type TestLogger struct {
	t *testing.T

	mu      sync.Mutex
	entries []string
}

var _ types.Logger = (*TestLogger)(nil)

// NewTest creates a logger that writes through t.Logf.
//
// Example:
//
//	log := logger.NewTest(t)
//	p := cohort.NewPartitioner(cohort.WithLogger(log))
//	require.True(t, log.Contains("ERROR", "invariant"))
func NewTest(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

// Debug logs a debug-level message.
func (l *TestLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

// Info logs an info-level message.
func (l *TestLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

// Warn logs a warning-level message.
func (l *TestLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

// Error logs an error-level message.
func (l *TestLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

// Fatal logs a fatal-level message and fails the test.
func (l *TestLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Fatalf("FATAL: %s %s", msg, formatKeyValues(keysAndValues))
}

// Contains reports whether a message at level containing substr was logged.
func (l *TestLogger) Contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := level + ": "
	for _, e := range l.entries {
		if strings.HasPrefix(e, prefix) && strings.Contains(e, substr) {
			return true
		}
	}

	return false
}

func (l *TestLogger) log(level, msg string, keysAndValues []any) {
	line := fmt.Sprintf("%s: %s %s", level, msg, formatKeyValues(keysAndValues))

	l.mu.Lock()
	l.entries = append(l.entries, line)
	l.mu.Unlock()

	l.t.Log(line)
}

// formatKeyValues formats key-value pairs as "k=v" separated by spaces.
func formatKeyValues(keysAndValues []any) string {
	var sb strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&sb, "%v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&sb, "%v=<missing>", keysAndValues[i])
		}
	}

	return sb.String()
}

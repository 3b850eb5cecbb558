package types

// Logger defines methods for structured logging.
//
// The method set matches the key/value style of zap.SugaredLogger's "w"
// methods and log/slog. All methods accept alternating key-value pairs.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at FatalLevel and calls os.Exit(1).
	//
	// Only the cohortd entrypoint calls Fatal; library code returns errors.
	Fatal(msg string, keysAndValues ...any)
}

package ports

// Logger defines the interface for logging.
//
//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Debug logs a message that is only shown in verbose mode.
	Debug(msg string, args ...any)
	// Info logs an informational message with optional key/value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning.
	Warn(msg string, args ...any)
	// Error logs an error together with its chain of causes.
	Error(err error)
}

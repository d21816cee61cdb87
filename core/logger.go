package core

// Logger is the logging contract consumed by services. Implementations
// live in services/logger.
type Logger interface {
	Enable(enabled bool)

	// expected fmt: msg | error, map[string]interface{}, core.SchoolScope
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

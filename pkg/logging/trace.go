package logging

import "log/slog"

// EnableTrace turns on Trace output. It is set by a TRACE log level.
var EnableTrace = false

// Trace logs at DEBUG level, but only if EnableTrace is true. Used for raw
// response bodies, which are too noisy for plain DEBUG.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}

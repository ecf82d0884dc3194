// Package log is the process-wide structured logger. Calls take a message
// followed by alternating key/value pairs.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
)

var (
	mu            sync.RWMutex
	defaultLogger = newLogger(os.Stderr, "info", "console")
)

func newLogger(w io.Writer, level, format string) logger.Logger {
	return logslog.New(logslog.Config{
		Level:  strings.ToLower(strings.TrimSpace(level)),
		Format: strings.ToLower(strings.TrimSpace(format)),
		Writer: w,
	})
}

// Configure sets the level (trace, debug, info, warn, error) and format
// (console, json) of the global logger.
func Configure(level, format string) {
	SetOutput(os.Stderr, level, format)
}

// SetOutput is Configure with an explicit writer
func SetOutput(w io.Writer, level, format string) {
	l := newLogger(w, level, format)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func current() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Trace(msg string, keysAndValues ...any) { current().Trace(msg, keysAndValues...) }
func Debug(msg string, keysAndValues ...any) { current().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { current().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { current().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { current().Error(msg, keysAndValues...) }

// With returns a logger that adds key to every entry
func With(key string, value any) logger.Logger {
	return current().With(key, value)
}

// WithError returns a logger carrying err under "error"
func WithError(err error) logger.Logger {
	return current().WithError(err)
}

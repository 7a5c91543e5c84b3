// Package logger provides the shared charmbracelet/log logger and the
// per-session loggers used by the controllers and transports.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger.
var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
	Logger.SetLevel(log.InfoLevel)
}

// Configure sets level and destination. An empty level falls back to
// DOCASSIST_LOG_LEVEL, then to info. An empty file logs to stderr.
func Configure(level string, file string) error {
	if level == "" {
		level = os.Getenv("DOCASSIST_LOG_LEVEL")
	}

	var output io.Writer = os.Stderr
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
	}

	Logger = log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
	Logger.SetLevel(ParseLevel(level))
	return nil
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ForSession returns a child logger prefixed like "[WS 1234abcd]".
func ForSession(transport, sessionID string) *log.Logger {
	id := sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return Logger.WithPrefix(fmt.Sprintf("[%s %s]", transport, id))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func Debug(msg interface{}, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }
func Info(msg interface{}, keyvals ...interface{})  { Logger.Info(msg, keyvals...) }
func Warn(msg interface{}, keyvals ...interface{})  { Logger.Warn(msg, keyvals...) }
func Error(msg interface{}, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }

// Package logger provides structured logging for groundeffect.
// It uses Go's log/slog package with JSON output and file rotation via lumberjack.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration options, sourced from
// config.Config.General so the daemon entry point can build one without
// this package importing config (avoids an import cycle).
type Config struct {
	// LogFile is the path to the rotating log file. If empty, only stdout
	// logging is enabled.
	LogFile string

	// Level selects the minimum level: "debug", "info", "warn", "error".
	Level string

	// JSON enables JSON output format. If false, text format is used.
	JSON bool

	// Component is an optional component name added to all log entries.
	Component string
}

// Init initializes the global slog logger with the given configuration.
// It writes to both stdout and a rotating log file (if LogFile is set).
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)

	var writer io.Writer = os.Stdout

	if cfg.LogFile != "" {
		if dir := filepath.Dir(cfg.LogFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}

		logFile := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,   // megabytes
			MaxBackups: 3,    // number of old files to keep
			MaxAge:     14,   // days
			Compress:   true, // compress rotated files
		}

		writer = io.MultiWriter(os.Stdout, logFile)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	logger := slog.New(handler)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}

	slog.SetDefault(logger)
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new logger with the given attributes added to all log entries.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

// WithComponent returns a new logger tagged with a component name. The
// sync workers and the store log through the package-level helpers below
// and do not use it.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs at error level and exits with status code 1.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

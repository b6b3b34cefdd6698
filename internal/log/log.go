// Package log provides JSON-lines structured logging for casenote.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
	}
}

// New creates a new JSON-lines structured logger:
//
//	{"ts":"2024-01-15T10:30:00Z","level":"DEBUG","msg":"session opened","session_id":"..."}
//
// Log levels:
//   - debug: session transitions, dropped results (enabled via CASENOTE_DEBUG=1)
//   - info: startup, corpus import
//   - warn: rejected actions that reached the surface
//   - error: storage and config failures
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

// OpenFile opens path for appending, creating its directory if needed.
// The TUI owns the terminal, so its logs go to a file.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// StartupInfo holds information to log when a command starts.
type StartupInfo struct {
	Version      string
	Command      string
	ConfigPath   string
	Provider     string
	CorpusSource string
	MaxRetries   int
	PID          int
}

// LogStartup logs command startup information.
func LogStartup(logger *slog.Logger, info StartupInfo) {
	logger.Info("casenote started",
		"version", info.Version,
		"command", info.Command,
		"config_path", info.ConfigPath,
		"provider", info.Provider,
		"corpus", info.CorpusSource,
		"max_retries", info.MaxRetries,
		"pid", info.PID,
	)
}

// LogCorpusImported logs a completed corpus import.
func LogCorpusImported(logger *slog.Logger, source, databasePath string, inputs int) {
	logger.Info("corpus imported",
		"source", source,
		"database_path", databasePath,
		"inputs", inputs,
	)
}

// LogSQLiteError logs SQLite errors.
func LogSQLiteError(logger *slog.Logger, operation string, err error) {
	logger.Error("sqlite error", "operation", operation, "error", err)
}

// LogRejectedAction logs a user action the session refused.
func LogRejectedAction(logger *slog.Logger, action string, err error) {
	logger.Debug("action rejected", "action", action, "error", err)
}

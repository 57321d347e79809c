package log

import (
	"io"
	"log/slog"
	"strings"
)

// Config represents logging configuration.
type Config struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
	}
}

// ParseLevel parses string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Build returns a logger for cfg writing to w.
func Build(cfg Config, w io.Writer) Logger {
	level := ParseLevel(cfg.Level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		return NewTextLogger(w, level)
	case "json":
		return NewJSONLogger(w, level)
	default:
		return NewJSONLogger(w, level)
	}
}

// Configure builds a logger for cfg writing to w, installs it as the
// default and returns it.
func Configure(cfg Config, w io.Writer) Logger {
	l := Build(cfg, w)
	SetDefault(l)
	return l
}

// Package logger builds the process slog.Logger: text or JSON to stdout,
// optionally teed into a size-rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is "json" or "text".
	Format string
	// Dir enables file logging with rotation when non-empty.
	Dir string
	// Component is added to every entry when set.
	Component string
	// FileOnly drops the stdout sink; used by the console, which owns the
	// terminal. It has no effect without Dir.
	FileOnly bool
}

// New returns a logger for cfg and installs it as slog's default.
func New(cfg Config) (*slog.Logger, error) {
	var writer io.Writer = os.Stdout
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, fileName(cfg.Component)),
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, file)
		if cfg.FileOnly {
			writer = file
		}
	} else if cfg.FileOnly {
		writer = io.Discard
	}

	logger := slog.New(newHandler(writer, cfg))
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	slog.SetDefault(logger)
	return logger, nil
}

func fileName(component string) string {
	if component == "" {
		return "lumen.log"
	}
	return "lumen-" + component + ".log"
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OrDefault lets constructors accept a nil logger.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Discard is a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

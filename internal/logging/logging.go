// Package logging builds the structured logger. The terminal belongs to the
// TUI, so records go to a size-rotated file instead of stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jwulff/bolt/internal/config"
)

// New returns a JSON slog logger writing to the configured log file and a
// closer that flushes the file.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}
	return NewWithWriter(out, cfg.Level), out, nil
}

// NewWithWriter returns a JSON slog logger at the named level.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Err is shorthand for the error attribute.
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}

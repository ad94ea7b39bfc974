package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions selects the level, format and optional file sink of a logger.
type LogOptions struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	File   string // when set, logs are also written here with size-based rotation

	MaxSizeMB  int
	MaxBackups int
}

// NewLogger builds a slog.Logger writing to stdout and, if opts.File is set,
// to a rotated log file. The returned close function releases the file.
func NewLogger(opts LogOptions) (*slog.Logger, func() error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotator)
		closeFn = rotator.Close
	}

	return newLogger(w, opts), closeFn
}

func newLogger(w io.Writer, opts LogOptions) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

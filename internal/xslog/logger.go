package xslog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

const Default = LevelInfo

var slogLevels = map[Level]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := slogLevels[level]; !ok {
		return "", fmt.Errorf("invalid log level: %q (valid: debug, info, warn, error)", s)
	}
	return level, nil
}

// UnmarshalText lets config decode LOG_LEVEL straight into a Level.
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

func (l Level) String() string { return string(l) }

func (l Level) slog() slog.Level {
	if level, ok := slogLevels[l]; ok {
		return level
	}
	return slog.LevelInfo
}

// Format selects the handler: json for the server, text for a terminal.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

func (f *Format) UnmarshalText(text []byte) error {
	switch format := Format(strings.ToLower(string(text))); format {
	case FormatJSON, FormatText:
		*f = format
		return nil
	default:
		return fmt.Errorf("invalid log format: %q (valid: json, text)", text)
	}
}

func New(w io.Writer, level Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.slog()}
	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// NewFromEnv builds the logger used before configuration has been read.
// Invalid values fall back to the defaults.
func NewFromEnv(w io.Writer) *slog.Logger {
	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = Default
	}
	format := FormatJSON
	if err := format.UnmarshalText([]byte(os.Getenv("LOG_FORMAT"))); err != nil {
		format = FormatJSON
	}
	return New(w, level, format)
}

type loggerKey struct{}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext falls back to slog.Default so callers never need a nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

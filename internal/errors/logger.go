package errors

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// Logger is the JSON slog logger every talentloop package writes through
type Logger struct {
	logger *slog.Logger
}

// NewLogger logs to stderr. Stdout belongs to command output such as
// questions and scorecards.
func NewLogger(level slog.Level) *Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w
func NewLoggerWithWriter(level slog.Level, w io.Writer) *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler)}
}

// New parses level ("debug", "info", "warn", "error"; empty means info) and
// returns a stderr logger
func New(level string) (*Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(slogLevel), nil
}

// ParseLevel converts a textual level to slog.Level, ignoring case
func ParseLevel(level string) (slog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
	return l, nil
}

// LogError logs err at error level. AppError fields become top-level
// attributes and its context is grouped under error_context.
func (l *Logger) LogError(err error, message string, args ...any) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		l.logger.Error(message, append([]any{"error", err.Error()}, args...)...)
		return
	}

	attrs := []any{
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	if appErr.Cause != nil {
		attrs = append(attrs, "cause", appErr.Cause.Error())
	}
	if len(appErr.Context) > 0 {
		group := make([]any, 0, 2*len(appErr.Context))
		for _, k := range slices.Sorted(maps.Keys(appErr.Context)) {
			group = append(group, k, appErr.Context[k])
		}
		attrs = append(attrs, slog.Group("error_context", group...))
	}
	l.logger.Error(message, append(attrs, args...)...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// With returns a logger that always includes the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Package logging configures the process-wide slog logger for the kvfile
// command. Library packages do not log; they return errors.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var level = new(slog.LevelVar)

// Init installs a text or JSON handler writing to w as the slog default.
// levelStr is one of debug, info, warn, error; format is text or json.
func Init(w io.Writer, levelStr, format string) error {
	l, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	level.Set(l)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// ParseLevel maps a level name to a slog.Level. The empty string means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// For returns a logger tagged with a component attribute. It resolves
// slog.Default() on every call, so package-level loggers follow Init and
// CaptureForTest.
func For(component string) *slog.Logger {
	return slog.New(&dynamicHandler{attrs: []slog.Attr{slog.String("component", component)}})
}

// SetLevel changes the log level at runtime
func SetLevel(l slog.Level) {
	level.Set(l)
}

type dynamicHandler struct {
	attrs []slog.Attr
}

func (h *dynamicHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, l)
}

func (h *dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	return slog.Default().Handler().Handle(ctx, r)
}

func (h *dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dynamicHandler{attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

// WithGroup is not supported; attributes stay at the top level
func (h *dynamicHandler) WithGroup(string) slog.Handler {
	return h
}

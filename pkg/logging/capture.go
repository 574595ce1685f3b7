package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Capture collects slog records for test assertions
type Capture struct {
	mu        sync.Mutex
	records   []slog.Record
	prev      *slog.Logger
	prevLevel slog.Level
}

// CaptureForTest installs a capturing handler as the slog default. Call
// Restore when done.
func CaptureForTest() *Capture {
	c := &Capture{
		prev:      slog.Default(),
		prevLevel: level.Level(),
	}
	slog.SetDefault(slog.New(&captureHandler{capture: c}))
	SetLevel(slog.LevelDebug)
	return c
}

// Restore reinstates the previous default logger and level
func (c *Capture) Restore() {
	slog.SetDefault(c.prev)
	level.Set(c.prevLevel)
}

// Has reports whether a record at level contains msgSubstring
func (c *Capture) Has(level slog.Level, msgSubstring string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.Level == level && strings.Contains(r.Message, msgSubstring) {
			return true
		}
	}
	return false
}

// Attr returns the value of the named attribute on the first record whose
// message contains msgSubstring
func (c *Capture) Attr(msgSubstring, key string) (slog.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if !strings.Contains(r.Message, msgSubstring) {
			continue
		}
		var (
			found slog.Value
			ok    bool
		)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				found, ok = a.Value, true
				return false
			}
			return true
		})
		return found, ok
	}
	return slog.Value{}, false
}

// Count returns the number of captured records at level
func (c *Capture) Count(level slog.Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

type captureHandler struct {
	capture *Capture
}

func (h *captureHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= level.Level()
}

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.capture.mu.Lock()
	defer h.capture.mu.Unlock()
	h.capture.records = append(h.capture.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

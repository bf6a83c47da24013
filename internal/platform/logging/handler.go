package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// tagColors highlights messages that start with a component tag.
var tagColors = map[string]string{
	"[BOOT]":          "\x1b[96m",
	"[HTTP]":          "\x1b[95m",
	"[GRANT]":         "\x1b[94m",
	"[STORE]":         "\x1b[92m",
	"[CACHE]":         "\x1b[35m",
	"[PROFILE]":       "\x1b[34m",
	"[AUTH]":          "\x1b[91m",
	"[OBSERVABILITY]": "\x1b[90m",
}

// TextHandler renders records as single coloured console lines.
type TextHandler struct {
	writer io.Writer
	level  slog.Leveler
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
}

// NewTextHandler builds a console handler. Colour is disabled for non-terminal sinks by passing color=false.
func NewTextHandler(w io.Writer, level slog.Leveler, color bool) *TextHandler {
	return &TextHandler{writer: w, level: level, color: color, mu: &sync.Mutex{}}
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	msg := r.Message

	if tagColor, ok := h.tagColor(msg); ok {
		fmt.Fprintf(&b, "%s %s", h.paint(colorTime, "["+timeStr+"]"), h.paint(tagColor, msg))
	} else {
		level := "[" + r.Level.String() + "]"
		fmt.Fprintf(&b, "%s %s %s", h.paint(colorTime, "["+timeStr+"]"), h.paint(levelColor(r.Level), level), msg)
	}

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		b.WriteString(" {")
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	dup := *h
	dup.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &dup
}

// WithGroup flattens groups; console output has no nesting.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *TextHandler) tagColor(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.IndexByte(msg, ']')
	if end < 0 {
		return "", false
	}
	c, ok := tagColors[msg[:end+1]]
	return c, ok
}

func (h *TextHandler) paint(color, s string) string {
	if !h.color {
		return s
	}
	return color + s + colorReset
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}

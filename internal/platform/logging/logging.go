package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultRetentionDays = 7

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// RetentionDays bounds how long rotated files are kept.
	RetentionDays int
	// Console overrides stdout; NoColor disables ANSI colouring.
	Console io.Writer
	NoColor bool
}

// Logger writes JSON lines to a daily rotated file and coloured text to the console.
type Logger struct {
	cfg         Config
	level       *slog.LevelVar
	console     slog.Handler
	file        *os.File
	fileHandler slog.Handler
	slog        *slog.Logger
	currentDate string
	mu          sync.RWMutex
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// ParseLevel maps a configured level name onto slog, defaulting to info.
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

// New creates a Logger. An empty Dir keeps output on the console only.
func New(cfg Config) (*Logger, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Filename == "" {
		cfg.Filename = "grant-server.log"
	}

	level := &slog.LevelVar{}
	level.Set(ParseLevel(cfg.Level))

	l := &Logger{
		cfg:         cfg,
		level:       level,
		console:     NewTextHandler(cfg.Console, level, !cfg.NoColor),
		currentDate: time.Now().Format("2006-01-02"),
		stopCh:      make(chan struct{}),
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := l.openFile()
		if err != nil {
			return nil, err
		}
		l.file = file
		l.fileHandler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
		go l.rotationLoop()
	}
	l.rebuild()
	return l, nil
}

func (l *Logger) openFile() (*os.File, error) {
	path := filepath.Join(l.cfg.Dir, l.cfg.Filename)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// rebuild must run with mu held for writing, or before the logger is shared.
func (l *Logger) rebuild() {
	handlers := []slog.Handler{l.console}
	if l.fileHandler != nil {
		handlers = append(handlers, l.fileHandler)
	}
	l.slog = slog.New(fanout(handlers))
}

func (l *Logger) rotationLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			today := time.Now().Format("2006-01-02")
			if today != l.currentDateSnapshot() {
				l.rotate(today)
				l.cleanOldLogs()
			}
		case <-l.stopCh:
			return
		}
	}
}

func (l *Logger) currentDateSnapshot() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentDate
}

// rotate archives the active file as name-YYYY-MM-DD.ext and reopens a fresh one.
func (l *Logger) rotate(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
	}
	current := filepath.Join(l.cfg.Dir, l.cfg.Filename)
	ext := filepath.Ext(l.cfg.Filename)
	base := strings.TrimSuffix(l.cfg.Filename, ext)
	archived := filepath.Join(l.cfg.Dir, fmt.Sprintf("%s-%s%s", base, l.currentDate, ext))
	if _, err := os.Stat(current); err == nil {
		if err := os.Rename(current, archived); err != nil {
			slog.New(l.console).Error("rename log file failed", slog.String("error", err.Error()))
		}
	}

	file, err := l.openFile()
	if err != nil {
		slog.New(l.console).Error("reopen log file failed", slog.String("error", err.Error()))
		l.file = nil
		l.fileHandler = nil
		l.rebuild()
		return
	}
	l.file = file
	l.fileHandler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level})
	l.currentDate = newDate
	l.rebuild()
}

func (l *Logger) cleanOldLogs() {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	ext := filepath.Ext(l.cfg.Filename)
	base := strings.TrimSuffix(l.cfg.Filename, ext)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), ext))
		if err != nil || !date.Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(l.cfg.Dir, name))
	}
}

// SetLevel changes the threshold for both sinks.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Close stops rotation and releases the log file.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
			l.file = nil
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.RLock()
	logger := l.slog
	l.mu.RUnlock()

	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	logger.Log(ctx, level, msg)
}

func (l *Logger) Debug(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(slog.LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(slog.LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(slog.LevelError, format, args...) }

// FormatLog prefixes message with a single [tag]. Messages that already
// start with a tag are returned unchanged.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return "[" + tag + "] " + message
}

func (l *Logger) DebugTag(tag, format string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, format), args...)
}

func (l *Logger) InfoTag(tag, format string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, format), args...)
}

func (l *Logger) WarnTag(tag, format string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, format), args...)
}

func (l *Logger) ErrorTag(tag, format string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, format), args...)
}

// Tagged returns a printf-style logger that prefixes every message with tag.
func (l *Logger) Tagged(tag string) *TaggedLogger {
	return &TaggedLogger{logger: l, tag: tag}
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slog
}

// TaggedLogger satisfies the domain Logger contracts with a fixed tag.
type TaggedLogger struct {
	logger *Logger
	tag    string
}

func (t *TaggedLogger) Debug(format string, args ...any) { t.logger.DebugTag(t.tag, format, args...) }
func (t *TaggedLogger) Info(format string, args ...any)  { t.logger.InfoTag(t.tag, format, args...) }
func (t *TaggedLogger) Warn(format string, args ...any)  { t.logger.WarnTag(t.tag, format, args...) }
func (t *TaggedLogger) Error(format string, args ...any) { t.logger.ErrorTag(t.tag, format, args...) }

type multiHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

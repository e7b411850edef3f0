package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultService       = "marketlens"
	defaultRetentionDays = 7
	fileDateLayout       = "20060102"
)

// Options configures New.
type Options struct {
	// Dir enables file output when set.
	Dir           string
	Level         string
	Format        string
	Service       string
	RetentionDays int
	// Output replaces stdout. Used by tests.
	Output io.Writer
}

// DailyWriter appends to <service>-YYYYMMDD.log in dir, switching files at
// midnight local time and pruning files older than the retention window.
type DailyWriter struct {
	dir           string
	prefix        string
	retentionDays int
	now           func() time.Time

	mu          sync.Mutex
	currentDate string
	file        *os.File
}

// NewDailyWriter opens today's file under dir, creating dir if needed.
func NewDailyWriter(dir, prefix string, retentionDays int) (*DailyWriter, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	if prefix == "" {
		prefix = defaultService
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &DailyWriter{
		dir:           dir,
		prefix:        prefix,
		retentionDays: retentionDays,
		now:           time.Now,
	}
	if err := w.rotateIfNeeded(w.now()); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeeded(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Path returns the file currently being written.
func (w *DailyWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathFor(w.currentDate)
}

func (w *DailyWriter) pathFor(date string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, date))
}

func (w *DailyWriter) rotateIfNeeded(now time.Time) error {
	date := now.Format(fileDateLayout)
	if date == w.currentDate && w.file != nil {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	file, err := os.OpenFile(w.pathFor(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		w.file = nil
		return fmt.Errorf("open log file: %w", err)
	}
	w.currentDate = date
	w.file = file
	w.prune(now)
	return nil
}

func (w *DailyWriter) prune(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	prefix := w.prefix + "-"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
		date, err := time.ParseInLocation(fileDateLayout, datePart, now.Location())
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger and installs it as the slog default. The
// returned Closer releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	service := strings.TrimSpace(opts.Service)
	if service == "" {
		service = defaultService
	}
	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}

	var closer io.Closer = nopCloser{}
	var fileWriter *DailyWriter
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		writer, err := NewDailyWriter(dir, service, opts.RetentionDays)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, writer)
		closer = writer
		fileWriter = writer
	}

	handler := newHandler(out, ParseLevel(opts.Level, slog.LevelInfo), opts.Format)
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	if fileWriter != nil {
		logger.Info("file logging enabled", "path", fileWriter.Path(), "retention_days", opts.RetentionDays)
	}
	return logger, closer, nil
}

// ParseLevel reads debug/info/warn/error or a numeric slog level.
func ParseLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return slog.Level(i)
		}
		return fallback
	}
}

func newHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}

// Package logging provides structured logging for genesis runs. It wraps
// log/slog with the attributes the pipeline attaches to every record: the
// phase and, where relevant, the file being processed.
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

	"genesis/internal/domain"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger is safe for concurrent use.
type Logger struct {
	*slog.Logger
	file *os.File
	mu   *sync.Mutex
}

// New creates a Logger. format is "json" or "text"; anything else is text.
// When path is non-empty records are appended to that file instead of w.
func New(level, format, path string, w io.Writer) (*Logger, error) {
	var file *os.File
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = file
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler), file: file, mu: &sync.Mutex{}}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), mu: &sync.Mutex{}}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithPhase returns a child logger tagging records with a pipeline phase
// ("catalog", "extract", "analyze", "write", "validate", ...).
func (l *Logger) WithPhase(phase string) *Logger {
	return l.with(slog.String("phase", phase))
}

// WithFile returns a child logger tagging records with a source path.
func (l *Logger) WithFile(path string) *Logger {
	return l.with(slog.String("file", path))
}

func (l *Logger) with(attr slog.Attr) *Logger {
	return &Logger{Logger: l.Logger.With(attr), file: l.file, mu: l.mu}
}

// Diagnostic logs d at WARN, or ERROR when it is fatal.
func (l *Logger) Diagnostic(d domain.Diagnostic) {
	level := slog.LevelWarn
	if d.Fatal {
		level = slog.LevelError
	}
	args := []any{"kind", string(d.Kind)}
	if d.Subject != "" {
		args = append(args, "subject", d.Subject)
	}
	if d.File != "" {
		args = append(args, "file", d.File)
	}
	l.Log(context.Background(), level, d.Message, args...)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

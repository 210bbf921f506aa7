// Package logging sets up the human-readable text log for swipedeck.
//
// The terminal is owned by the TUI, so logs go to a dated file under the log
// directory. Components receive a *log.Logger and add their own prefix.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// File is a logger bound to an open log file.
type File struct {
	*log.Logger
	f *os.File
}

// Open creates dir if needed and opens swipedeck-<date>.log for appending.
func Open(dir string, level log.Level) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory: %w", err)
	}

	name := fmt.Sprintf("swipedeck-%s.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	return &File{Logger: New(f, level), f: f}, nil
}

// Path returns the path of the underlying file.
func (l *File) Path() string {
	return l.f.Name()
}

// Close flushes nothing (writes are unbuffered) and closes the file.
func (l *File) Close() error {
	return l.f.Close()
}

// New builds a timestamped logger writing to w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component returns l with a component prefix, or a discarding logger when l
// is nil.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l.WithPrefix(name)
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Package logging provides the CLI's leveled, optionally coloured console
// logger with an optional append-only file sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Colour modes accepted by Options.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// palette holds the ANSI sequences of one logger (all empty when disabled).
type palette struct {
	red, green, yellow, blue, cyan, reset string
}

var ansi = palette{
	red:    "\033[1;91m",
	green:  "\033[1;92m",
	yellow: "\033[1;93m",
	blue:   "\033[1;94m",
	cyan:   "\033[1;96m",
	reset:  "\033[0m",
}

// Options configures a Logger. Nil writers default to os.Stdout/os.Stderr.
type Options struct {
	Color   string // ColorAuto (default), ColorAlways, ColorNever
	File    string // Optional append-only log file
	Verbose bool   // Emit DEBUG lines
	Stdout  io.Writer
	Stderr  io.Writer
}

// Logger provides leveled, optionally coloured logging with an optional file sink.
type Logger struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	colors  palette
	verbose bool
	file    *os.File
	now     func() time.Time
}

// New builds a Logger. Call Close when done if a File was set.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		verbose: opts.Verbose,
		now:     time.Now,
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
	}
	if l.stderr == nil {
		l.stderr = os.Stderr
	}

	if colorEnabled(opts.Color, l.stdout) {
		l.colors = ansi
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- user-selected log path
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// colorEnabled resolves mode against w. Auto enables colour only for a
// terminal, with NO_COLOR unset and TERM not dumb.
func colorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return IsTerminal(w) && os.Getenv("NO_COLOR") == "" && strings.ToLower(os.Getenv("TERM")) != "dumb"
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()

	plain := ts + " [" + level + "] " + text + "\n"
	out := l.stdout
	if level == "ERROR" {
		out = l.stderr
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+l.colors.reset+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", l.colors.blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", l.colors.green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", l.colors.yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", l.colors.red, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", l.colors.cyan, fmt.Sprintf(format, args...))
}

// Verbose reports whether DEBUG lines are emitted.
func (l *Logger) Verbose() bool {
	return l.verbose
}

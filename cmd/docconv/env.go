package main

import (
	"io"
	"os"
	"time"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/logging"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader // Nil disables interactive controls
	Getenv  func(string) string
	Environ func() []string
	Options []docconv.Option // Applied after the config-derived options
}

// DefaultEnv returns the production environment. Interactive controls are
// read from stdin only when it is a terminal.
func DefaultEnv() *Environment {
	env := &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
	}
	if logging.IsTerminal(os.Stdin) {
		env.Stdin = os.Stdin
	}
	return env
}

func (e *Environment) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

func (e *Environment) environ() []string {
	if e.Environ == nil {
		return nil
	}
	return e.Environ()
}

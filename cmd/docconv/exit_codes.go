package main

import (
	"errors"
	"os"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/config"
)

// Exit codes for the docconv CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, 130=interrupted.
const (
	ExitSuccess         = 0   // Every item converted, or at least one did
	ExitGeneral         = 1   // Nothing converted, or an unexpected error
	ExitUsage           = 2   // Invalid flags, config, or settings
	ExitIO              = 3   // Input missing or unreadable
	ExitToolUnavailable = 5   // No backend for the command's domain
	ExitCancelled       = 130 // Stopped by the user or a signal
)

// exitCodeFor returns the exit code for a setup error.
// It uses errors.Is, so callers must wrap with fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, docconv.ErrUserCancelled) {
		return ExitCancelled
	}

	if errors.Is(err, docconv.ErrToolUnavailable) {
		return ExitToolUnavailable
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrFieldRange) ||
		errors.Is(err, docconv.ErrInvalidQuality) ||
		errors.Is(err, docconv.ErrInvalidDPI) ||
		errors.Is(err, docconv.ErrInvalidFormat) ||
		errors.Is(err, docconv.ErrInvalidEncodeQuality) ||
		errors.Is(err, docconv.ErrInvalidResize) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUnsupportedInput) ||
		errors.Is(err, ErrNoOutput) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedShell) {
		return ExitUsage
	}

	return ExitGeneral
}

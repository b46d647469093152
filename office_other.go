//go:build !windows

package docconv

import "fmt"

// Office automation servers exist only on Windows.

func withCOM(fn func() error) error {
	return fn()
}

func probeCOM(progIDs []string) error {
	return fmt.Errorf("%w: %s requires Windows", ErrToolUnavailable, progIDs[0])
}

func convertCOM(progIDs []string, _ comDocument, _, _ string) error {
	return probeCOM(progIDs)
}

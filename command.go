package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/process"
)

// commandResult is the captured output of one external command.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

var _ commandRunner = (*execRunner)(nil)

// execRunner runs commands with os/exec, bounded by timeout. The whole
// process tree is killed when the timeout or ctx expires.
type execRunner struct {
	timeout time.Duration
}

// Run executes one command and captures stdout, stderr and exit code.
// A timeout is reported as both ErrTimeout and ErrExternalOperation.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- tool paths come from config or PATH lookup
	process.Isolate(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result, nil
	}

	result.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%w: %w: %s after %v", ErrExternalOperation, ErrTimeout, name, r.timeout)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, fmt.Errorf("%w: %s: %v%s", ErrExternalOperation, name, err, stderrSuffix(result.Stderr))
}

// stderrSuffix formats the last line of stderr for an error message.
func stderrSuffix(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if i := strings.LastIndexByte(stderr, '\n'); i >= 0 {
		stderr = stderr[i+1:]
	}
	return " (" + stderr + ")"
}

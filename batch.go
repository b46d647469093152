package docconv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-docconv/internal/fileutil"
)

// dirPermissions is used for every output directory the library creates.
const dirPermissions = 0o750

// ItemFunc converts one input into the output path chosen by the executor.
type ItemFunc func(ctx context.Context, input, output string) error

// NameFunc returns the output path for input, relative to the batch output
// directory. It must depend only on its arguments.
type NameFunc func(index int, input string) string

// StemNamer names outputs <input-stem>.<ext>.
func StemNamer(ext string) NameFunc {
	return func(_ int, input string) string {
		return fileutil.Stem(input) + "." + ext
	}
}

// DirNamer names outputs <input-stem>, for conversions producing a folder.
func DirNamer() NameFunc {
	return func(_ int, input string) string {
		return fileutil.Stem(input)
	}
}

// FixedNamer always returns name. Used for single-file mode.
func FixedNamer(name string) NameFunc {
	return func(int, string) string { return name }
}

// Outcome is the result of one item. It is reported, never returned.
type Outcome struct {
	Success bool
	Message string
}

// outcomeOf converts an item error into an Outcome.
func outcomeOf(output string, err error) Outcome {
	if err == nil {
		return Outcome{Success: true, Message: "created " + output}
	}
	return Outcome{Message: err.Error()}
}

// Executor runs the generic batch loop shared by every batch domain.
type Executor struct {
	ctrl     *Controller
	reporter Reporter
}

// NewExecutor creates an Executor. A nil controller never pauses and a nil
// reporter discards output.
func NewExecutor(ctrl *Controller, reporter Reporter) *Executor {
	if ctrl == nil {
		ctrl = NewController()
	}
	if reporter == nil {
		reporter = Discard
	}
	return &Executor{ctrl: ctrl, reporter: reporter}
}

// Run processes inputs in order and reports true iff at least one succeeded.
//
// Before each item the controller is consulted; a stop ends the loop with
// completed outputs left in place. Item failures, including panics, are
// logged and counted but never propagated.
func (e *Executor) Run(ctx context.Context, inputs []string, outputDir string, name NameFunc, op ItemFunc) bool {
	if err := os.MkdirAll(outputDir, dirPermissions); err != nil {
		e.reporter.Log(fmt.Sprintf("cannot create output directory %s: %v", outputDir, err))
		return false
	}

	total := len(inputs)
	if total == 0 {
		return false
	}

	e.reporter.Log(fmt.Sprintf("converting %d item(s)", total))
	succeeded := 0
	for i, input := range inputs {
		if !e.ctrl.CheckContinue() || ctx.Err() != nil {
			e.reporter.Log("stopped by user")
			break
		}

		e.reporter.Progress(i+1, total)
		output := filepath.Join(outputDir, name(i, input))
		e.reporter.Log(fmt.Sprintf("[%d/%d] %s", i+1, total, filepath.Base(input)))

		outcome := e.runItem(ctx, op, input, output)
		if outcome.Success {
			succeeded++
			e.reporter.Log("  " + outcome.Message)
		} else {
			e.reporter.Log("  FAILED: " + outcome.Message)
		}
	}

	e.reporter.Log(fmt.Sprintf("succeeded %d/%d", succeeded, total))
	return succeeded > 0
}

// runItem invokes op and converts any failure, including a panic, into an Outcome.
func (e *Executor) runItem(ctx context.Context, op ItemFunc, input, output string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Message: fmt.Sprintf("unexpected failure: %v", r)}
		}
	}()
	return outcomeOf(output, op(ctx, input, output))
}

// runPages is the suspension-aware loop used inside page-producing items.
// On cancellation it removes dir, the in-flight item's partial output.
func runPages(ctrl *Controller, reporter Reporter, dir string, pages int, page func(n int) error) error {
	for n := 1; n <= pages; n++ {
		if !ctrl.CheckContinue() {
			if dir != "" {
				if err := os.RemoveAll(dir); err != nil {
					reporter.Log(fmt.Sprintf("  %v: %v", ErrCleanup, err))
				}
			}
			return ErrUserCancelled
		}
		reporter.Log(fmt.Sprintf("  page %d/%d", n, pages))
		if err := page(n); err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}
	}
	return nil
}

// isCancelled reports whether err is a user cancellation.
func isCancelled(err error) bool {
	return errors.Is(err, ErrUserCancelled) || errors.Is(err, context.Canceled)
}

package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/hints"
	"github.com/alnah/go-docconv/internal/logging"
)

// jobResult is the outcome of one supervised job.
type jobResult struct {
	ok        bool // At least one item converted
	cancelled bool // A stop was requested by the user or a signal
}

// readCommands forwards trimmed, lower-cased stdin lines until r is
// exhausted or done is closed.
func readCommands(done <-chan struct{}, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- strings.ToLower(strings.TrimSpace(sc.Text())):
			case <-done:
				return
			}
		}
	}()
	return lines
}

// supervise submits fn to runner and blocks until the job is done, logging
// its events and applying control commands. A cancelled ctx stops the job;
// completed outputs are kept.
func supervise(ctx context.Context, runner *docconv.Runner, name string, fn docconv.JobFunc, commands <-chan string, log *eventLogger) (jobResult, error) {
	job, err := runner.Submit(ctx, name, fn)
	if err != nil {
		return jobResult{}, err
	}
	log.logger.Debug("job %s started (%s)", job.ID, name)

	var result jobResult
	events := runner.Events()
	interrupted := ctx.Done()
	for {
		select {
		case ev := <-events:
			if ev.JobID != job.ID {
				continue
			}
			if ev.Kind == docconv.EventDone {
				result.ok = ev.OK
				return result, nil
			}
			log.event(ev)

		case line, open := <-commands:
			if !open {
				commands = nil
				continue
			}
			if applyControl(runner, line, log.logger) {
				result.cancelled = true
			}

		case <-interrupted:
			interrupted = nil
			result.cancelled = true
			log.logger.Warn("interrupted, stopping after the current step")
			_ = runner.Stop()
		}
	}
}

// applyControl maps one stdin command onto the runner and reports whether
// it was a stop.
func applyControl(runner *docconv.Runner, line string, logger *logging.Logger) bool {
	var err error
	stop := false
	switch line {
	case "":
		return false
	case "p", "pause":
		if err = runner.Pause(); err == nil {
			logger.Warn("paused: r to resume, s to stop")
		}
	case "r", "resume":
		if err = runner.Resume(); err == nil {
			logger.Info("resumed")
		}
	case "s", "stop":
		if err = runner.Stop(); err == nil {
			stop = true
			logger.Warn("stopping after the current step")
		}
	default:
		logger.Warn("unknown control %q (use p, r or s)", line)
	}
	if err != nil {
		logger.Debug("control %q ignored: %v", line, err)
	}
	return stop
}

// logLevel classifies one reporter line for the console.
type logLevel int

const (
	levelInfo logLevel = iota
	levelSuccess
	levelWarn
	levelError
)

// eventLogger renders job events through the CLI logger.
type eventLogger struct {
	logger *logging.Logger
	quiet  bool
}

func (l *eventLogger) event(ev docconv.Event) {
	switch ev.Kind {
	case docconv.EventProgress:
		l.logger.Debug("progress %d/%d", ev.Current, ev.Total)
	case docconv.EventLog:
		l.line(ev.Line)
	}
}

func (l *eventLogger) line(text string) {
	switch levelOf(text) {
	case levelError:
		l.logger.Error("%s%s", text, lineHint(text))
	case levelWarn:
		l.logger.Warn("%s", strings.Replace(text, "WARN: ", "", 1))
	case levelSuccess:
		if !l.quiet {
			l.logger.Success("%s", text)
		}
	default:
		if !l.quiet {
			l.logger.Info("%s", text)
		}
	}
}

// lineHint returns the hint for a failure line that names a known cause.
func lineHint(text string) string {
	switch {
	case strings.Contains(text, docconv.ErrTimeout.Error()):
		return hints.ForTimeout()
	case strings.Contains(text, docconv.ErrBrowserConnect.Error()):
		return hints.ForBrowserConnect()
	}
	return ""
}

// levelOf picks a level from the wording of a reporter line.
func levelOf(text string) logLevel {
	t := strings.TrimSpace(text)
	switch {
	case strings.Contains(t, "FAILED"),
		strings.HasPrefix(t, "succeeded 0/"),
		strings.HasPrefix(t, "invalid settings"),
		strings.HasPrefix(t, "cannot create output directory"),
		strings.HasPrefix(t, docconv.ErrToolUnavailable.Error()),
		strings.HasPrefix(t, "no image could be converted"),
		strings.HasPrefix(t, "job aborted"):
		return levelError
	case strings.HasPrefix(t, "WARN"),
		strings.HasPrefix(t, "stopped by user"),
		strings.Contains(t, "falling back"):
		return levelWarn
	case strings.HasPrefix(t, "created "),
		strings.HasPrefix(t, "succeeded "),
		strings.HasPrefix(t, "extracted "),
		strings.Contains(t, " saved to "):
		return levelSuccess
	}
	return levelInfo
}

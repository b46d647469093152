package docconv

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobFunc is the body of a submitted job, usually a bound Service operation.
type JobFunc func(ctx context.Context, ctrl *Controller, reporter Reporter) bool

// EventKind classifies events emitted by a running job.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventLog      EventKind = "log"
	EventDone     EventKind = "done"
)

// Event is one sequenced message from the worker to the control surface.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"jobId"`
	Kind      EventKind `json:"kind"`
	Current   int       `json:"current,omitempty"`
	Total     int       `json:"total,omitempty"`
	Line      string    `json:"line,omitempty"`
	OK        bool      `json:"ok,omitempty"`
}

// defaultEventBuffer is the capacity of the Runner event channel.
const defaultEventBuffer = 256

// Runner executes one job at a time on its own goroutine and forwards its
// progress and log lines as Events. The Events channel must be drained; a
// full channel blocks the worker.
type Runner struct {
	mu      sync.Mutex
	events  chan Event
	nextSeq int64
	current *RunningJob
}

// NewRunner returns an idle Runner.
func NewRunner() *Runner {
	return &Runner{events: make(chan Event, defaultEventBuffer)}
}

// Events returns the channel every job publishes to. It is never closed.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// RunningJob is the handle of a submitted job.
type RunningJob struct {
	ID   string
	Name string

	ctrl *Controller
	done chan struct{}
	ok   bool
}

// Done is closed once the job has returned and its done event is published.
func (j *RunningJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job returns and reports whether it succeeded.
func (j *RunningJob) Wait() bool {
	<-j.done
	return j.ok
}

// Submit starts fn on a new goroutine. Cancelling ctx stops the job at its
// next suspension point, releasing a paused worker too.
func (r *Runner) Submit(ctx context.Context, name string, fn JobFunc) (*RunningJob, error) {
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return nil, ErrJobRunning
	}
	job := &RunningJob{
		ID:   uuid.NewString(),
		Name: name,
		ctrl: NewController(),
		done: make(chan struct{}),
	}
	r.current = job
	r.mu.Unlock()

	go r.run(ctx, job, fn)
	return job, nil
}

func (r *Runner) run(ctx context.Context, job *RunningJob, fn JobFunc) {
	release := context.AfterFunc(ctx, job.ctrl.Stop)
	defer release()

	reporter := ReporterFuncs{
		OnProgress: func(current, total int) {
			r.publish(Event{JobID: job.ID, Kind: EventProgress, Current: current, Total: total})
		},
		OnLog: func(line string) {
			r.publish(Event{JobID: job.ID, Kind: EventLog, Line: line})
		},
	}

	ok := r.safeRun(ctx, job, fn, reporter)

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	job.ok = ok
	r.publish(Event{JobID: job.ID, Kind: EventDone, OK: ok})
	close(job.done)
}

// safeRun turns a panic in fn into a failed job so the Runner stays usable.
func (r *Runner) safeRun(ctx context.Context, job *RunningJob, fn JobFunc, reporter Reporter) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			reporter.Log("job aborted: unexpected failure")
			ok = false
		}
	}()
	return fn(ctx, job.ctrl, reporter)
}

func (r *Runner) publish(event Event) {
	r.mu.Lock()
	r.nextSeq++
	event.Seq = r.nextSeq
	r.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.events <- event
}

// Current returns the running job, or nil when idle.
func (r *Runner) Current() *RunningJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Pause suspends the running job at its next suspension point.
func (r *Runner) Pause() error {
	return r.control((*Controller).Pause)
}

// Resume releases a paused job.
func (r *Runner) Resume() error {
	return r.control((*Controller).Resume)
}

// Stop requests cancellation of the running job.
func (r *Runner) Stop() error {
	return r.control((*Controller).Stop)
}

// State returns the control state of the running job.
func (r *Runner) State() (ControlState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return StateStopped, ErrNoRunningJob
	}
	return r.current.ctrl.State(), nil
}

func (r *Runner) control(signal func(*Controller)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrNoRunningJob
	}
	signal(r.current.ctrl)
	return nil
}

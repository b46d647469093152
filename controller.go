package docconv

import "sync"

// ControlState is the cooperative control state of one job.
type ControlState int

const (
	StateRunning ControlState = iota
	StatePaused
	StateStopped
)

// String returns the lowercase name of the state.
func (s ControlState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Controller is the pause/stop primitive shared between the control surface
// and the worker of a single job. Signals come from one goroutine, waits
// happen on another. Do not share one Controller across concurrent jobs.
//
// Stopped is terminal until Reset. Once stopped, CheckContinue never blocks.
type Controller struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state ControlState
}

// NewController returns a Controller in the Running state.
func NewController() *Controller {
	c := &Controller{state: StateRunning}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Pause suspends the worker at its next suspension point.
// It has no effect on a stopped controller.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		c.state = StatePaused
	}
}

// Resume releases a paused worker. It has no effect on a stopped controller.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePaused {
		c.state = StateRunning
		c.cond.Broadcast()
	}
}

// Stop requests cancellation and unblocks any waiter.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateStopped
	c.cond.Broadcast()
}

// Reset returns the controller to Running and clears a previous stop.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRunning
	c.cond.Broadcast()
}

// CheckContinue is the suspension point. It blocks while paused and reports
// whether the caller may proceed.
func (c *Controller) CheckContinue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == StatePaused {
		c.cond.Wait()
	}
	return c.state == StateRunning
}

// IsStopped reports whether stop has been requested.
func (c *Controller) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateStopped
}

// State returns a snapshot of the current state.
func (c *Controller) State() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

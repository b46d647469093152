package docconv

// Notes:
// - Blocking behavior is observed through a goroutine and a result channel.
//   The "still blocked" assertions use a short wait; a false pass is possible
//   only if the scheduler starves the goroutine, never a false failure.

import (
	"testing"
	"time"
)

const blockWait = 50 * time.Millisecond

func checkAsync(c *Controller) <-chan bool {
	ch := make(chan bool, 1)
	go func() { ch <- c.CheckContinue() }()
	return ch
}

func assertBlocked(t *testing.T, ch <-chan bool) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("CheckContinue returned %v, want it to block", v)
	case <-time.After(blockWait):
	}
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("CheckContinue did not return")
		return false
	}
}

// ---------------------------------------------------------------------------
// TestController_Transitions - State machine
// ---------------------------------------------------------------------------

func TestController_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		steps func(c *Controller)
		want  ControlState
	}{
		{"new controller is running", func(c *Controller) {}, StateRunning},
		{"pause", func(c *Controller) { c.Pause() }, StatePaused},
		{"pause then resume", func(c *Controller) { c.Pause(); c.Resume() }, StateRunning},
		{"stop from running", func(c *Controller) { c.Stop() }, StateStopped},
		{"stop from paused", func(c *Controller) { c.Pause(); c.Stop() }, StateStopped},
		{"pause after stop is ignored", func(c *Controller) { c.Stop(); c.Pause() }, StateStopped},
		{"resume after stop is ignored", func(c *Controller) { c.Stop(); c.Resume() }, StateStopped},
		{"reset after stop", func(c *Controller) { c.Stop(); c.Reset() }, StateRunning},
		{"reset after pause", func(c *Controller) { c.Pause(); c.Reset() }, StateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewController()
			tt.steps(c)
			if got := c.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
			if got := c.IsStopped(); got != (tt.want == StateStopped) {
				t.Errorf("IsStopped() = %v, want %v", got, tt.want == StateStopped)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestController_CheckContinue - Suspension point behavior
// ---------------------------------------------------------------------------

func TestController_CheckContinue_Running(t *testing.T) {
	t.Parallel()

	c := NewController()
	if !c.CheckContinue() {
		t.Error("CheckContinue() = false on running controller")
	}
}

func TestController_CheckContinue_StoppedNeverBlocks(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Stop()
	for i := 0; i < 3; i++ {
		if receive(t, checkAsync(c)) {
			t.Fatal("CheckContinue() = true after Stop")
		}
	}
}

func TestController_CheckContinue_BlocksWhilePaused(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Pause()

	ch := checkAsync(c)
	assertBlocked(t, ch)

	c.Resume()
	if !receive(t, ch) {
		t.Error("CheckContinue() = false after Resume")
	}
}

func TestController_StopUnblocksPausedWaiter(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Pause()

	ch := checkAsync(c)
	assertBlocked(t, ch)

	c.Stop()
	if receive(t, ch) {
		t.Error("CheckContinue() = true after Stop")
	}
}

func TestController_ResetUnblocksPausedWaiter(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Pause()

	ch := checkAsync(c)
	assertBlocked(t, ch)

	c.Reset()
	if !receive(t, ch) {
		t.Error("CheckContinue() = false after Reset")
	}
}

func TestControlState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state ControlState
		want  string
	}{
		{StateRunning, "running"},
		{StatePaused, "paused"},
		{StateStopped, "stopped"},
		{ControlState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

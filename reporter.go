package docconv

// Reporter receives progress and status lines from a running job.
// Implementations must not assume they are called on the control surface's
// goroutine; Runner marshals both onto its event channel.
type Reporter interface {
	Progress(current, total int)
	Log(line string)
}

// ReporterFuncs adapts two functions to Reporter. Nil fields are skipped.
type ReporterFuncs struct {
	OnProgress func(current, total int)
	OnLog      func(line string)
}

// Progress implements Reporter.
func (r ReporterFuncs) Progress(current, total int) {
	if r.OnProgress != nil {
		r.OnProgress(current, total)
	}
}

// Log implements Reporter.
func (r ReporterFuncs) Log(line string) {
	if r.OnLog != nil {
		r.OnLog(line)
	}
}

// Discard is a Reporter that drops everything.
var Discard Reporter = ReporterFuncs{}

var _ Reporter = ReporterFuncs{}

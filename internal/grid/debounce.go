package grid

import (
	"sync"
	"time"
)

// Debouncer coalesces repeated triggers within a delay window into one
// trailing-edge execution. Each Trigger cancels and reschedules a single
// timer, so N triggers inside the window run the callback once, with whatever
// state the callback reads when it finally fires. Shared by the validation
// and auto-save schedulers.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given trailing-edge delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, cancelling any pending run.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending run. Required at teardown so no callback fires
// after its owner is gone.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

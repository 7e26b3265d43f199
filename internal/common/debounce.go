package common

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid successive triggers into a single deferred call.
// Each Schedule cancels any pending call and starts the quiet window over;
// the function runs on a timer goroutine once the window elapses untouched.
type Debouncer struct {
	timer *time.Timer
	mu    sync.Mutex
}

// Schedule defers fn by delay, superseding any previously scheduled call.
func (d *Debouncer) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, fn)
}

// Stop cancels any pending call. A call already started is not interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

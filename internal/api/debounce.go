package api

import (
	"sync"
	"time"
)

// DefaultDebounce is the trailing-edge window for keystroke-driven queries.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer coalesces rapid successive triggers into one invocation on the
// trailing edge of the window. Each Trigger replaces the pending one.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a Debouncer; a non-positive delay uses [DefaultDebounce].
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the debounce window, cancelling any pending
// invocation. fn runs on a timer goroutine.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

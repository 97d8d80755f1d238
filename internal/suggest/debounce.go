package suggest

import (
	"sync"
	"time"
)

const (
	// ContentSettle is how long content input must be quiet before an
	// analysis fires; TitleSettle is the shorter window for title edits.
	ContentSettle = time.Second
	TitleSettle   = 500 * time.Millisecond
)

// Debouncer coalesces rapid inputs into at most one callback per settled
// input per key. A new Trigger for the same key cancels the pending run,
// so two analyses for the same session never overlap.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*time.Timer)}
}

// Trigger schedules fn after the settle window, cancelling any run
// already pending for the key.
func (d *Debouncer) Trigger(key string, settle time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if timer, ok := d.pending[key]; ok {
		timer.Stop()
	}
	d.pending[key] = time.AfterFunc(settle, func() {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending run without firing it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.pending[key]; ok {
		timer.Stop()
		delete(d.pending, key)
	}
}

// Close stops every outstanding timer. Triggers after Close are no-ops.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, timer := range d.pending {
		timer.Stop()
		delete(d.pending, key)
	}
}

package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration coalesces the burst of events an editor or the
// pipeline produces when rewriting an artifact.
const DefaultDebounceDuration = 200 * time.Millisecond

// Debouncer runs the most recently triggered function once the triggers
// have been quiet for its duration.
type Debouncer struct {
	duration time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
}

// NewDebouncer returns a debouncer; non-positive durations use the default.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Duration returns the quiet period.
func (d *Debouncer) Duration() time.Duration { return d.duration }

// Trigger (re)starts the quiet period and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := seq == d.seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

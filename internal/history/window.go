package history

import (
	"sync"

	"github.com/ranjitk/sensor-monitor/internal/reading"
)

// Reducer folds a snapshot of the window into a single value.
type Reducer func(readings []reading.Reading) float64

// Window is a fixed-capacity FIFO buffer of recent readings. Once at
// capacity the oldest entry is evicted on every push. The bound is a
// count, not a duration: a window of 24 holds the last 24 pushes, which
// only corresponds to 24 hours if the push cadence is hourly. Reducers
// that need a true time window must filter by Reading.Timestamp.
type Window struct {
	mu       sync.Mutex
	buf      []reading.Reading
	capacity int
}

// NewWindow creates a window holding at most capacity readings.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		buf:      make([]reading.Reading, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a reading, evicting the oldest entry if the window is full.
func (w *Window) Push(r reading.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) >= w.capacity {
		copy(w.buf, w.buf[1:])
		w.buf = w.buf[:len(w.buf)-1]
	}
	w.buf = append(w.buf, r)
}

// Len returns the number of readings currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

// Aggregate applies the reducer to a consistent snapshot of the window.
// The reducer sees a copy and must not be relied on for side effects.
func (w *Window) Aggregate(fn Reducer) float64 {
	return fn(w.Snapshot())
}

// Snapshot returns a copy of the current contents, oldest first.
func (w *Window) Snapshot() []reading.Reading {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]reading.Reading, len(w.buf))
	copy(out, w.buf)
	return out
}

// SumSecondary is a reducer summing the secondary metric, e.g. rainfall
// accumulated across the retained readings.
func SumSecondary(readings []reading.Reading) float64 {
	var total float64
	for _, r := range readings {
		total += r.Secondary
	}
	return total
}

// SumPrimary is a reducer summing the primary metric.
func SumPrimary(readings []reading.Reading) float64 {
	var total float64
	for _, r := range readings {
		total += r.Primary
	}
	return total
}

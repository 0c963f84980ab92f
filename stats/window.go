// Package stats keeps rolling windows of recent wait and service times and
// derives the wait-time predictors recorded in every snapshot.
package stats

// Window is a fixed-capacity buffer of recent observations. Once full, the
// oldest observation is overwritten.
type Window struct {
	buf  []float64
	next int
}

// NewWindow returns an empty window holding at most capacity values.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, 0, capacity)}
}

// Add records v, evicting the oldest value when the window is full.
func (w *Window) Add(v float64) {
	if len(w.buf) < cap(w.buf) {
		w.buf = append(w.buf, v)
		return
	}
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
}

// Len returns the number of retained observations.
func (w *Window) Len() int { return len(w.buf) }

// Cap returns the window capacity.
func (w *Window) Cap() int { return cap(w.buf) }

// Empty reports whether nothing was recorded yet.
func (w *Window) Empty() bool { return len(w.buf) == 0 }

// Mean returns the arithmetic mean of the retained values, zero when empty.
func (w *Window) Mean() float64 {
	if len(w.buf) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.buf {
		sum += v
	}
	return sum / float64(len(w.buf))
}

// Values returns the retained observations, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	return append(out, w.buf[:w.next]...)
}

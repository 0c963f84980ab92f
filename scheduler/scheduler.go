package scheduler

import (
	customerrors "call-replay/errors"
	"container/heap"
	"fmt"
	"math"
)

// DefaultMinInterval is the smallest separation between two dispatches.
const DefaultMinInterval = 0.001

// Scheduler is a time-ordered event list. Actions are dispatched one at a
// time in ascending time order; a dispatched action may schedule new ones.
// It is not safe for concurrent use.
type Scheduler[T any] struct {
	minInterval float64
	last        float64
	seq         uint64
	pending     eventHeap[T]
	dispatched  int
	rejected    int
}

type entry[T any] struct {
	at     float64
	seq    uint64
	action T
}

// eventHeap implements heap.Interface ordered by (at, seq).
type eventHeap[T any] []entry[T]

func (h eventHeap[T]) Len() int { return len(h) }
func (h eventHeap[T]) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap[T]) Push(x any) {
	*h = append(*h, x.(entry[T]))
}

func (h *eventHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	var zero entry[T]
	old[n-1] = zero
	*h = old[:n-1]
	return e
}

// New returns an empty scheduler. A non-positive minInterval falls back to
// DefaultMinInterval.
func New[T any](minInterval float64) *Scheduler[T] {
	if minInterval <= 0 || math.IsNaN(minInterval) || math.IsInf(minInterval, 0) {
		minInterval = DefaultMinInterval
	}
	return &Scheduler[T]{minInterval: minInterval}
}

// Schedule inserts action at time at and returns the effective time, which is
// never earlier than the last dispatch plus the minimum interval.
// Non-finite times are rejected with ErrUnschedulable.
func (s *Scheduler[T]) Schedule(at float64, action T) (float64, error) {
	if math.IsNaN(at) || math.IsInf(at, 0) {
		s.rejected++
		return 0, fmt.Errorf("%w: %v", customerrors.ErrUnschedulable, at)
	}
	effective := math.Max(at, s.last+s.minInterval)
	s.seq++
	heap.Push(&s.pending, entry[T]{at: effective, seq: s.seq, action: action})
	return effective, nil
}

// Step dispatches the earliest pending action. It returns false when nothing
// is pending.
func (s *Scheduler[T]) Step(dispatch func(at float64, action T)) bool {
	if len(s.pending) == 0 {
		return false
	}
	e := heap.Pop(&s.pending).(entry[T])
	// Entries queued before the cursor advanced may sit closer than the
	// minimum interval to the previous dispatch.
	at := math.Max(e.at, s.last+s.minInterval)
	s.last = at
	s.dispatched++
	dispatch(at, e.action)
	return true
}

// Drain dispatches until no action remains, including actions scheduled
// during the drain, and returns the number dispatched.
func (s *Scheduler[T]) Drain(dispatch func(at float64, action T)) int {
	n := 0
	for s.Step(dispatch) {
		n++
	}
	return n
}

// Now returns the time of the last dispatch, or zero before the first one.
func (s *Scheduler[T]) Now() float64 { return s.last }

// Len returns the number of pending actions.
func (s *Scheduler[T]) Len() int { return len(s.pending) }

// Dispatched returns the total number of dispatched actions.
func (s *Scheduler[T]) Dispatched() int { return s.dispatched }

// Rejected returns the number of refused insertions.
func (s *Scheduler[T]) Rejected() int { return s.rejected }

// MinInterval returns the enforced separation between dispatches.
func (s *Scheduler[T]) MinInterval() float64 { return s.minInterval }

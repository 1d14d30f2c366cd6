// Package timers implements the $TIMERS native variant — timer firing feeds
// the observer plane as an "expired:<id>" message: named, interval-based
// timers kept in a min-heap by next deadline, drained by a scheduler poll
// rather than one goroutine per timer.
package timers

import (
	"container/heap"
	"sync"
	"time"

	"github.com/purc-go/purc/internal/perrors"
)

// entry is one named timer's heap slot.
type entry struct {
	id       string
	interval time.Duration
	active   bool
	deadline time.Time
	index    int // heap.Interface bookkeeping
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Set is one document's $TIMERS collection: a name-indexed map for
// Set/Cancel/IsActive plus a heap ordered by deadline for efficient draining.
type Set struct {
	mu      sync.Mutex
	byID    map[string]*entry
	pending entryHeap
}

func NewSet() *Set {
	return &Set{byID: make(map[string]*entry)}
}

// SetTimer (re)installs a repeating timer: it fires every interval while
// active is true, and the entry is kept (but dormant) when active is false
// so a later re-activation does not require re-declaring the interval.
func (s *Set) SetTimer(id string, interval time.Duration, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byID[id]; ok {
		e.interval = interval
		e.active = active
		if active {
			e.deadline = time.Now().Add(interval)
			if e.index < 0 {
				// Lazily dropped from the heap by a previous NextDeadline/Drain
				// scan while inactive; re-insert rather than Fix.
				heap.Push(&s.pending, e)
			} else {
				heap.Fix(&s.pending, e.index)
			}
		}
		return
	}

	e := &entry{id: id, interval: interval, active: active}
	if active {
		e.deadline = time.Now().Add(interval)
	}
	s.byID[id] = e
	heap.Push(&s.pending, e)
}

// Cancel removes id entirely; canceling an unknown id is a no-op.
func (s *Set) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if e.index >= 0 {
		heap.Remove(&s.pending, e.index)
	}
}

// IsActive reports whether id exists and is currently running.
func (s *Set) IsActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	return ok && e.active
}

// NextDeadline reports the earliest pending active timer's deadline, for a
// scheduler to compute how long it may safely block waiting for new input
// ("the scheduler blocks on the union of every coroutine's
// readiness sources").
func (s *Set) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) > 0 {
		e := s.pending[0]
		if !e.active {
			heap.Pop(&s.pending)
			continue
		}
		return e.deadline, true
	}
	return time.Time{}, false
}

// Drain pops and reschedules every timer whose deadline is <= now, returning
// their ids in deadline order. A timer that is still active is immediately
// rescheduled for now+interval (catch-up drift is not compensated:
// a stalled scheduler simply fires the missed tick once, not N times).
func (s *Set) Drain(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []string
	for len(s.pending) > 0 && !s.pending[0].deadline.After(now) {
		e := heap.Pop(&s.pending).(*entry)
		if !e.active {
			continue
		}
		fired = append(fired, e.id)
		e.deadline = now.Add(e.interval)
		heap.Push(&s.pending, e)
	}
	return fired
}

// Len reports the number of distinct timer ids tracked, active or not.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}


// ErrUnknownTimer is returned by callers that require id to already exist.
var ErrUnknownTimer = perrors.New(perrors.NotFound, "unknown timer id")

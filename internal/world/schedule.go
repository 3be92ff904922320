package world

import (
	"container/heap"
	"time"
)

// Scheduler queues delayed callbacks for the tick loop. Entries fire in due
// order; equal due times fire in enqueue order.
type Scheduler struct {
	entries scheduleHeap
	seq     uint64
}

type scheduleEntry struct {
	due time.Time
	seq uint64
	fn  func()
}

type scheduleHeap []*scheduleEntry

func (h scheduleHeap) Len() int { return len(h) }

func (h scheduleHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x any) { *h = append(*h, x.(*scheduleEntry)) }

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// After queues fn to run once the delay has elapsed.
func (s *Scheduler) After(now time.Time, delay time.Duration, fn func()) {
	s.seq++
	heap.Push(&s.entries, &scheduleEntry{due: now.Add(delay), seq: s.seq, fn: fn})
}

// RunDue fires every entry due at or before now, in order. Callbacks may
// schedule further entries; entries becoming due during the sweep also fire.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for len(s.entries) > 0 && !s.entries[0].due.After(now) {
		e := heap.Pop(&s.entries).(*scheduleEntry)
		e.fn()
		fired++
	}
	return fired
}

// Pending reports the queued entry count.
func (s *Scheduler) Pending() int { return len(s.entries) }

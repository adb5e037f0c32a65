package sched

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a virtual clock. Timers only fire from Advance, in deadline order,
// on the goroutine that calls Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue timerQueue
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m       *Manual
	when    time.Time
	seq     uint64
	fn      func()
	index   int
	fired   bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&t.m.queue, t.index)
	}
	return true
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, fn: f}
	heap.Push(&m.queue, t)
	return t
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, running every timer that falls due,
// including timers scheduled by callbacks along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.queue) == 0 || m.queue[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := heap.Pop(&m.queue).(*manualTimer)
		m.now = t.when
		t.fired = true
		m.mu.Unlock()

		t.fn()
	}
}

// Pending reports how many timers are waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

type timerQueue []*manualTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

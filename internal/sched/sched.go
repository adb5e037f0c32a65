// Package sched runs the engine's deferred continuations. Every callback is a
// fire-once timer; Loop serializes them so engine state is only ever touched by
// one goroutine at a time.
package sched

import (
	"sync"
	"time"
)

// Timer is a pending fire-once callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the callback
	// already fired or was stopped before.
	Stop() bool
}

// Scheduler creates timers and reports the current time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Loop executes posted tasks one at a time on a dedicated goroutine.
type Loop struct {
	tasks   chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewLoop starts the loop goroutine. Close must be called to release it.
func NewLoop() *Loop {
	l := &Loop{
		tasks:   make(chan func(), 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case task := <-l.tasks:
			task()
		}
	}
}

// Post queues f. It reports false once the loop has been closed.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case <-l.quit:
		return false
	case l.tasks <- f:
		return true
	}
}

// Close stops the loop and waits for the running task to finish. Queued tasks
// that have not started are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}

// Real schedules on wall-clock time and runs callbacks on a Loop.
type Real struct {
	loop *Loop
}

// NewReal returns a Scheduler backed by time.AfterFunc. A nil loop runs
// callbacks directly on the timer goroutine.
func NewReal(loop *Loop) *Real {
	return &Real{loop: loop}
}

func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	if r.loop == nil {
		return time.AfterFunc(d, f)
	}
	loop := r.loop
	return time.AfterFunc(d, func() { loop.Post(f) })
}

func (r *Real) Now() time.Time {
	return time.Now()
}

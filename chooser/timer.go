/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	"sync"
	"time"
)

// Scheduler defers f by d. Implementations must run f on the goroutine
// that owns the Session. The returned stop func is best effort.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SelectionTimer is a debounced one-shot timer. Arming replaces any
// pending deadline. A replaced or cancelled arm never fires, even if its
// callback was already queued by the Scheduler.
type SelectionTimer struct {
	sched Scheduler
	fire  func()

	gen   uint64
	armed bool
	stop  func() bool
}

func NewSelectionTimer(sched Scheduler, fire func()) *SelectionTimer {
	return &SelectionTimer{
		sched: sched,
		fire:  fire,
	}
}

func (t *SelectionTimer) Arm(d time.Duration) {
	t.Cancel()

	t.gen++
	gen := t.gen
	t.armed = true
	t.stop = t.sched.AfterFunc(d, func() {
		if !t.armed || t.gen != gen {
			return
		}

		t.armed = false
		t.stop = nil

		t.fire()
	})
}

func (t *SelectionTimer) Cancel() {
	if !t.armed {
		return
	}

	t.armed = false
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *SelectionTimer) Armed() bool {
	return t.armed
}

// LoopScheduler hands expired callbacks to an event loop through Fires.
// The loop is expected to call each received func.
type LoopScheduler struct {
	fires chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoopScheduler() *LoopScheduler {
	return &LoopScheduler{
		fires: make(chan func(), 8),
		done:  make(chan struct{}),
	}
}

func (l *LoopScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, func() {
		select {
		case l.fires <- f:
		case <-l.done:
		}
	})

	return t.Stop
}

func (l *LoopScheduler) Fires() <-chan func() {
	return l.fires
}

// Close releases timers still waiting to deliver. Safe to call twice.
func (l *LoopScheduler) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionTimer(t *testing.T) {
	t.Run("fires once per arm", func(t *testing.T) {
		sched := &manualScheduler{}
		fired := 0
		timer := NewSelectionTimer(sched, func() { fired++ })

		timer.Arm(time.Second)
		assert.True(t, timer.Armed())

		sched.Advance(999 * time.Millisecond)
		assert.Equal(t, 0, fired)

		sched.Advance(time.Millisecond)
		assert.Equal(t, 1, fired)
		assert.False(t, timer.Armed())

		sched.Advance(time.Hour)
		assert.Equal(t, 1, fired)
	})

	t.Run("re-arming debounces", func(t *testing.T) {
		sched := &manualScheduler{}
		fired := 0
		timer := NewSelectionTimer(sched, func() { fired++ })

		timer.Arm(time.Second)
		sched.Advance(500 * time.Millisecond)
		timer.Arm(time.Second)
		sched.Advance(900 * time.Millisecond)
		assert.Equal(t, 0, fired)

		sched.Advance(100 * time.Millisecond)
		assert.Equal(t, 1, fired)
		assert.Equal(t, 0, sched.live())
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		sched := &manualScheduler{}
		fired := 0
		timer := NewSelectionTimer(sched, func() { fired++ })

		timer.Cancel()
		timer.Arm(time.Second)
		timer.Cancel()
		timer.Cancel()

		sched.Advance(time.Minute)
		assert.Equal(t, 0, fired)
		assert.False(t, timer.Armed())
	})

	t.Run("callback may re-arm", func(t *testing.T) {
		sched := &manualScheduler{}
		fired := 0

		var timer *SelectionTimer
		timer = NewSelectionTimer(sched, func() {
			fired++
			if fired == 1 {
				timer.Arm(time.Second)
			}
		})

		timer.Arm(time.Second)
		sched.Advance(time.Second)
		require.True(t, timer.Armed())

		sched.Advance(time.Second)
		assert.Equal(t, 2, fired)
		assert.False(t, timer.Armed())
	})

	t.Run("queued fire of a cancelled arm is dropped", func(t *testing.T) {
		// Scheduler that ignores stop, like a fire already sitting in a channel.
		var queued []func()
		sched := schedulerFunc(func(_ time.Duration, f func()) func() bool {
			queued = append(queued, f)
			return func() bool { return false }
		})

		fired := 0
		timer := NewSelectionTimer(sched, func() { fired++ })

		timer.Arm(time.Second)
		timer.Cancel()
		timer.Arm(time.Second)

		for _, f := range queued {
			f()
		}
		assert.Equal(t, 1, fired)
	})
}

type schedulerFunc func(time.Duration, func()) func() bool

func (f schedulerFunc) AfterFunc(d time.Duration, fn func()) func() bool {
	return f(d, fn)
}

func TestLoopScheduler(t *testing.T) {
	l := NewLoopScheduler()
	defer l.Close()

	ran := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(ran) })

	select {
	case f := <-l.Fires():
		f()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled callback")
	}

	select {
	case <-ran:
	default:
		t.Fatal("callback was not the one delivered")
	}

	stop := l.AfterFunc(time.Hour, func() {})
	assert.True(t, stop())

	l.Close()
	l.Close()
}

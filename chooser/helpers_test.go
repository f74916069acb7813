/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	"sort"
	"time"
)

// manualScheduler runs callbacks synchronously from Advance.
type manualScheduler struct {
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	t := &manualTimer{at: m.now + d, f: f}
	m.pending = append(m.pending, t)

	return func() bool {
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (m *manualScheduler) Advance(d time.Duration) {
	m.now += d

	for {
		sort.SliceStable(m.pending, func(i, j int) bool {
			return m.pending[i].at < m.pending[j].at
		})

		if len(m.pending) == 0 || m.pending[0].at > m.now {
			return
		}

		t := m.pending[0]
		m.pending = m.pending[1:]
		if !t.stopped {
			t.f()
		}
	}
}

// live counts scheduled callbacks that have not been stopped.
func (m *manualScheduler) live() int {
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}

	return n
}

// scriptedSource returns picks in order and then zeros.
type scriptedSource struct {
	picks  []int
	colors []Color
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.picks) == 0 {
		return 0
	}

	p := s.picks[0]
	s.picks = s.picks[1:]

	return p % n
}

func (s *scriptedSource) Color() Color {
	if len(s.colors) == 0 {
		return Color{}
	}

	c := s.colors[0]
	s.colors = s.colors[1:]

	return c
}

type recorder struct {
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind())
	}

	return out
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, e := range r.events {
		if e.Kind() == kind {
			n++
		}
	}

	return n
}

func (r *recorder) reset() {
	r.events = nil
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package chooser implements the touch-session state machine behind the
// finger chooser: contacts come and go, a debounced timer fires once the
// table goes quiet, and the session resolves into winners or two teams.
//
// A Session is not safe for concurrent use. All touch events and timer
// callbacks must arrive on one goroutine.
package chooser

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SelectionDelay is the default quiet period before a session resolves.
	SelectionDelay = 1750 * time.Millisecond

	MaxWinners = 4
)

type Mode int

const (
	Single Mode = iota
	Group
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Group:
		return "group"
	}

	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Single && m != Group {
		return nil, ErrInvalidMode
	}

	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed

	return nil
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "single":
		return Single, nil
	case "group":
		return Group, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

type State int

const (
	Idle State = iota
	Active
	Resolving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Resolving:
		return "resolving"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Config is only mutable while no contacts are registered.
type Config struct {
	Mode        Mode
	WinnerCount int
}

func DefaultConfig() Config {
	return Config{Mode: Single, WinnerCount: 1}
}

func (c Config) validate() error {
	if c.Mode != Single && c.Mode != Group {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(c.Mode))
	}
	if c.WinnerCount < 1 || c.WinnerCount > MaxWinners {
		return fmt.Errorf("%w: %d (must be between 1-%d inclusive)", ErrInvalidWinnerCount, c.WinnerCount, MaxWinners)
	}

	return nil
}

type Option func(*Session)

// WithDelay overrides SelectionDelay.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithListener(l Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithConfig sets the starting configuration. Invalid values are ignored.
func WithConfig(c Config) Option {
	return func(s *Session) {
		if c.validate() == nil {
			s.cfg = c
		}
	}
}

type Session struct {
	registry *Registry
	timer    *SelectionTimer
	rand     RandomSource
	listener Listener

	cfg     Config
	delay   time.Duration
	state   State
	outcome Outcome
}

func New(sched Scheduler, rs RandomSource, opts ...Option) *Session {
	s := &Session{
		registry: NewRegistry(),
		rand:     rs,
		listener: discard{},
		cfg:      DefaultConfig(),
		delay:    SelectionDelay,
	}
	s.timer = NewSelectionTimer(sched, s.resolve)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) TouchBegan(id ContactID, p Position) error {
	c := Contact{ID: id, Position: p, Color: s.rand.Color()}

	cleared, err := s.registry.Add(c)
	switch {
	case errors.Is(err, ErrCapExceeded):
		s.timer.Cancel()
		s.state = Idle
		s.outcome = nil
		s.emit(AllMarkersCleared{IDs: cleared})

		return err
	case err != nil:
		return err
	}

	ev := MarkerCreated{ID: c.ID, Position: c.Position, Color: c.Color}
	if s.cfg.Mode == Group {
		hint := Gray
		ev.GroupColorHint = &hint
	}

	s.state = Active
	s.emit(ev)
	s.timer.Arm(s.delay)

	return nil
}

func (s *Session) TouchMoved(id ContactID, p Position) error {
	if !s.registry.Update(id, p) {
		return ErrNotFound
	}

	s.emit(MarkerMoved{ID: id, Position: p})

	return nil
}

func (s *Session) TouchEnded(id ContactID) error {
	return s.release(id, ReasonEnded)
}

func (s *Session) TouchCancelled(id ContactID) error {
	return s.release(id, ReasonCancelled)
}

func (s *Session) release(id ContactID, reason RemoveReason) error {
	err := s.registry.Remove(id)
	if err == nil {
		s.emit(MarkerRemoved{ID: id, Reason: reason})
	}

	n := s.registry.Len()
	switch {
	case n < 2:
		s.timer.Cancel()
	case err == nil && s.cfg.Mode == Single:
		s.timer.Arm(s.delay)
	}

	if n == 0 {
		s.endSession()
	}

	return err
}

// endSession returns to Idle. Group mode lasts one session; the winner
// count is kept.
func (s *Session) endSession() {
	s.state = Idle
	s.outcome = nil

	if s.cfg.Mode != Single {
		s.cfg.Mode = Single
		s.emit(ModeChanged{Mode: s.cfg.Mode, Winners: s.cfg.WinnerCount})
	}
}

func (s *Session) resolve() {
	contacts := s.registry.Contacts()
	if len(contacts) < 2 {
		return
	}

	switch s.cfg.Mode {
	case Group:
		s.state = Resolving
		s.splitTeams(contacts)
	case Single:
		if len(contacts) <= s.cfg.WinnerCount {
			return
		}
		s.state = Resolving
		s.pickWinners(contacts)
	}

	if s.registry.IsEmpty() {
		s.state = Idle
	} else {
		s.state = Active
	}
}

func (s *Session) splitTeams(contacts []Contact) {
	split := GroupSplit{
		Order:  make([]ContactID, 0, len(contacts)),
		Teams:  make(map[ContactID]int, len(contacts)),
		Colors: [2]Color{s.rand.Color(), s.rand.Color()},
	}
	for i, c := range contacts {
		split.Order = append(split.Order, c.ID)
		split.Teams[c.ID] = i % 2
	}

	s.outcome = split
	s.emit(TeamsAssigned{Teams: split.Teams, Colors: split.Colors})
	s.emit(HapticPulse{})
}

func (s *Session) pickWinners(contacts []Contact) {
	picks := Sample(s.rand, len(contacts), s.cfg.WinnerCount)

	winners := make([]ContactID, 0, len(picks))
	for _, i := range picks {
		winners = append(winners, contacts[i].ID)
	}

	pruned := s.registry.Retain(winners)
	losers := make([]ContactID, 0, len(pruned))
	for _, c := range pruned {
		losers = append(losers, c.ID)
		s.emit(MarkerRemoved{ID: c.ID, Reason: ReasonPruned})
	}

	s.outcome = SingleWinners{Winners: winners, Losers: losers}
	s.emit(HapticPulse{})

	if len(winners) == 1 {
		w := contacts[picks[0]]
		s.emit(WinnerRevealed{ID: w.ID, Position: w.Position, Color: w.Color})
	}
}

// Reset drops every contact and any pending resolution without emitting
// events. The configuration is kept.
func (s *Session) Reset() {
	s.timer.Cancel()
	s.registry = NewRegistry()
	s.state = Idle
	s.outcome = nil
}

func (s *Session) SetMode(m Mode) error {
	return s.configure(Config{Mode: m, WinnerCount: s.cfg.WinnerCount})
}

func (s *Session) ToggleMode() error {
	if s.cfg.Mode == Group {
		return s.SetMode(Single)
	}

	return s.SetMode(Group)
}

func (s *Session) SetWinnerCount(n int) error {
	return s.configure(Config{Mode: s.cfg.Mode, WinnerCount: n})
}

func (s *Session) configure(c Config) error {
	if !s.registry.IsEmpty() {
		return ErrSessionActive
	}
	if err := c.validate(); err != nil {
		return err
	}
	if c == s.cfg {
		return nil
	}

	s.cfg = c
	s.emit(ModeChanged{Mode: c.Mode, Winners: c.WinnerCount})

	return nil
}

func (s *Session) emit(e Event) {
	s.listener.Notify(e)
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) State() State {
	return s.state
}

// Outcome is the last resolution of the current session, or nil.
func (s *Session) Outcome() Outcome {
	return s.outcome
}

func (s *Session) Contacts() []Contact {
	return s.registry.Contacts()
}

func (s *Session) Len() int {
	return s.registry.Len()
}

func (s *Session) Lockout() bool {
	return s.registry.Lockout()
}

// Pending reports whether the selection timer is armed.
func (s *Session) Pending() bool {
	return s.timer.Armed()
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

// Event is a notification for the presentation layer. Kind is the wire name.
type Event interface {
	Kind() string
}

// Listener receives events synchronously from within a transition.
// Implementations must not call back into the Session.
type Listener interface {
	Notify(Event)
}

// ListenerFunc adapts a plain func to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) Notify(e Event) { f(e) }

type discard struct{}

func (discard) Notify(Event) {}

type RemoveReason string

const (
	ReasonEnded     RemoveReason = "ended"
	ReasonCancelled RemoveReason = "cancelled"
	ReasonPruned    RemoveReason = "pruned"
)

type MarkerCreated struct {
	ID       ContactID `json:"id"`
	Position Position  `json:"position"`
	Color    Color     `json:"color"`
	// GroupColorHint is set in group mode, where markers stay neutral
	// until teams are assigned.
	GroupColorHint *Color `json:"group_color_hint,omitempty"`
}

type MarkerMoved struct {
	ID       ContactID `json:"id"`
	Position Position  `json:"position"`
}

type MarkerRemoved struct {
	ID     ContactID    `json:"id"`
	Reason RemoveReason `json:"reason"`
}

// AllMarkersCleared follows a touch over the cap.
type AllMarkersCleared struct {
	IDs []ContactID `json:"ids"`
}

type TeamsAssigned struct {
	Teams  map[ContactID]int `json:"teams"`
	Colors [2]Color          `json:"colors"`
}

// WinnerRevealed asks for the full-screen flash around a sole winner.
type WinnerRevealed struct {
	ID       ContactID `json:"id"`
	Position Position  `json:"position"`
	Color    Color     `json:"color"`
}

type HapticPulse struct{}

type ModeChanged struct {
	Mode    Mode `json:"mode"`
	Winners int  `json:"winners"`
}

func (MarkerCreated) Kind() string     { return "marker_created" }
func (MarkerMoved) Kind() string       { return "marker_moved" }
func (MarkerRemoved) Kind() string     { return "marker_removed" }
func (AllMarkersCleared) Kind() string { return "all_markers_cleared" }
func (TeamsAssigned) Kind() string     { return "teams_assigned" }
func (WinnerRevealed) Kind() string    { return "winner_revealed" }
func (HapticPulse) Kind() string       { return "haptic_pulse" }
func (ModeChanged) Kind() string       { return "mode_changed" }

// Outcome is either GroupSplit or SingleWinners.
type Outcome interface {
	outcome()
}

// GroupSplit assigns every contact to team 0 or 1 by insertion order.
type GroupSplit struct {
	Order  []ContactID
	Teams  map[ContactID]int
	Colors [2]Color
}

// SingleWinners lists winners in pick order. Losers have been pruned.
type SingleWinners struct {
	Winners []ContactID
	Losers  []ContactID
}

func (GroupSplit) outcome()    {}
func (SingleWinners) outcome() {}

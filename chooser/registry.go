/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	"slices"
)

// MaxConcurrentTouches is the fixed contact cap.
const MaxConcurrentTouches = 5

// ContactID identifies one touch for its whole lifetime.
type ContactID string

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contact is one finger on the screen.
type Contact struct {
	ID       ContactID `json:"id"`
	Position Position  `json:"position"`
	Color    Color     `json:"color"`
}

// Registry holds the active contacts in insertion order.
//
// Going over the cap clears every contact and enters lockout, so an
// ambiguous gesture starts over instead of being truncated.
type Registry struct {
	order    []ContactID
	contacts map[ContactID]*Contact
	lockout  bool
}

func NewRegistry() *Registry {
	return &Registry{
		contacts: make(map[ContactID]*Contact, MaxConcurrentTouches),
	}
}

// Add registers c. When the cap would be exceeded, every existing contact
// is dropped and returned in cleared alongside ErrCapExceeded.
func (r *Registry) Add(c Contact) (cleared []ContactID, err error) {
	if r.lockout {
		return nil, ErrLockoutActive
	}

	if _, ok := r.contacts[c.ID]; ok {
		return nil, ErrDuplicateContact
	}

	if len(r.order)+1 > MaxConcurrentTouches {
		cleared = r.order
		r.order = nil
		clear(r.contacts)
		r.lockout = true

		return cleared, ErrCapExceeded
	}

	r.order = append(r.order, c.ID)
	r.contacts[c.ID] = &c

	return nil, nil
}

// Remove drops id. Lockout is lifted whenever the count is below the cap
// afterwards, including when id was never registered.
func (r *Registry) Remove(id ContactID) error {
	defer func() {
		if len(r.order) < MaxConcurrentTouches {
			r.lockout = false
		}
	}()

	if _, ok := r.contacts[id]; !ok {
		return ErrNotFound
	}

	delete(r.contacts, id)
	r.order = slices.DeleteFunc(r.order, func(o ContactID) bool {
		return o == id
	})

	return nil
}

// Update moves id to p. It reports false when id is unknown.
func (r *Registry) Update(id ContactID, p Position) bool {
	c, ok := r.contacts[id]
	if !ok {
		return false
	}

	c.Position = p

	return true
}

// Retain prunes every contact not in keep and returns the pruned ones.
func (r *Registry) Retain(keep []ContactID) []Contact {
	var pruned []Contact

	dst := r.order[:0]
	for _, id := range r.order {
		if slices.Contains(keep, id) {
			dst = append(dst, id)
			continue
		}
		pruned = append(pruned, *r.contacts[id])
		delete(r.contacts, id)
	}
	r.order = dst

	return pruned
}

func (r *Registry) Get(id ContactID) (Contact, bool) {
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, false
	}

	return *c, true
}

// Contacts returns copies of the active contacts in insertion order.
func (r *Registry) Contacts() []Contact {
	out := make([]Contact, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.contacts[id])
	}

	return out
}

func (r *Registry) IDs() []ContactID {
	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) IsEmpty() bool {
	return len(r.order) == 0
}

func (r *Registry) Lockout() bool {
	return r.lockout
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, r *Registry, n int) []ContactID {
	t.Helper()

	ids := make([]ContactID, 0, n)
	for i := range n {
		id := ContactID(fmt.Sprintf("c%d", i))
		_, err := r.Add(Contact{ID: id})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	return ids
}

func TestRegistry(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, 4)

		require.NoError(t, r.Remove(ids[1]))
		assert.Equal(t, []ContactID{ids[0], ids[2], ids[3]}, r.IDs())

		_, err := r.Add(Contact{ID: "late"})
		require.NoError(t, err)
		assert.Equal(t, []ContactID{ids[0], ids[2], ids[3], "late"}, r.IDs())
	})

	t.Run("sixth contact clears everyone and locks out", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, MaxConcurrentTouches)

		cleared, err := r.Add(Contact{ID: "sixth"})
		assert.ErrorIs(t, err, ErrCapExceeded)
		assert.Equal(t, ids, cleared)
		assert.True(t, r.IsEmpty())
		assert.True(t, r.Lockout())

		_, err = r.Add(Contact{ID: "seventh"})
		assert.ErrorIs(t, err, ErrLockoutActive)
		assert.True(t, r.Lockout())
		assert.Equal(t, 0, r.Len())
	})

	t.Run("removal below the cap lifts lockout even for unknown ids", func(t *testing.T) {
		r := NewRegistry()
		fill(t, r, MaxConcurrentTouches)
		_, _ = r.Add(Contact{ID: "sixth"})
		require.True(t, r.Lockout())

		assert.ErrorIs(t, r.Remove("c0"), ErrNotFound)
		assert.False(t, r.Lockout())

		_, err := r.Add(Contact{ID: "fresh"})
		assert.NoError(t, err)
	})

	t.Run("second remove is not found", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, 2)

		require.NoError(t, r.Remove(ids[0]))
		assert.ErrorIs(t, r.Remove(ids[0]), ErrNotFound)
		assert.Equal(t, []ContactID{ids[1]}, r.IDs())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, 1)

		_, err := r.Add(Contact{ID: ids[0]})
		assert.ErrorIs(t, err, ErrDuplicateContact)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("update is display only", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, 1)

		assert.True(t, r.Update(ids[0], Position{X: 3, Y: 4}))
		assert.False(t, r.Update("ghost", Position{X: 1}))

		c, ok := r.Get(ids[0])
		require.True(t, ok)
		assert.Equal(t, Position{X: 3, Y: 4}, c.Position)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("retain prunes the rest", func(t *testing.T) {
		r := NewRegistry()
		ids := fill(t, r, 4)

		pruned := r.Retain([]ContactID{ids[2]})
		require.Len(t, pruned, 3)
		assert.Equal(t, []ContactID{ids[2]}, r.IDs())

		for _, c := range pruned {
			_, ok := r.Get(c.ID)
			assert.False(t, ok)
		}
	})

	t.Run("size never exceeds cap", func(t *testing.T) {
		r := NewRegistry()
		for i := range 50 {
			id := ContactID(fmt.Sprintf("t%d", i))
			if i%3 == 2 {
				_ = r.Remove(ContactID(fmt.Sprintf("t%d", i-1)))
			} else {
				_, _ = r.Add(Contact{ID: id})
			}
			require.LessOrEqual(t, r.Len(), MaxConcurrentTouches)
		}
	})
}

package monitor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("buckets by priority", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{}, Priority(5))
		b := NewDefinition(TypeMessage, Rule{}, Priority(1))
		c := NewDefinition(TypeMessage, Rule{}, Priority(5))
		reg.Register(a)
		reg.Register(b)
		reg.Register(c)

		assert.Equal(t, []int{1, 5}, reg.Priorities())
		assert.Equal(t, []*Definition{a, c}, reg.Snapshot(5))
		assert.Equal(t, 3, reg.Len())
		assert.True(t, reg.Contains(b))
	})

	t.Run("remove", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{})
		reg.Register(a)

		assert.True(t, reg.Remove(a))
		assert.False(t, reg.Contains(a))
		assert.Empty(t, reg.Priorities())
	})

	t.Run("removing an absent definition is a no-op", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{})
		other := NewDefinition(TypeMessage, Rule{})
		reg.Register(other)

		assert.False(t, reg.Remove(a))
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{})
		reg.Register(a)

		snap := reg.Snapshot(DefaultPriority)
		reg.Remove(a)
		assert.Equal(t, []*Definition{a}, snap)
	})

	t.Run("snapshot at generation hides later registrations", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{})
		reg.Register(a)
		gen := reg.Generation()

		b := NewDefinition(TypeMessage, Rule{})
		reg.Register(b)

		assert.Equal(t, []*Definition{a}, reg.snapshotAt(DefaultPriority, gen))
		assert.Equal(t, []*Definition{a, b}, reg.snapshotAt(DefaultPriority, reg.Generation()))
	})

	t.Run("concurrent remove succeeds once", func(t *testing.T) {
		reg := NewRegistry()
		a := NewDefinition(TypeMessage, Rule{}, Temp(true))
		reg.Register(a)

		var wg sync.WaitGroup
		var mu sync.Mutex
		removed := 0
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if reg.Remove(a) {
					mu.Lock()
					removed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, removed)
	})
}

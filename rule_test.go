package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(ok bool) CheckerFunc {
	return func(context.Context, *Message, *State) (bool, error) { return ok, nil }
}

func TestRule_And(t *testing.T) {
	a := NewRule(always(true))
	b := NewRule(always(true))
	c := NewRule(always(false))

	t.Run("no arguments returns the same rule", func(t *testing.T) {
		got := a.And()
		assert.Equal(t, a, got)
		assert.Equal(t, a, a.And(Rule{}))
	})

	t.Run("is a union", func(t *testing.T) {
		assert.Equal(t, 2, a.And(b).Len())
		assert.Equal(t, 2, a.And(b, b, a).Len())
		assert.Equal(t, 1, a.And(a).Len())
	})

	t.Run("is associative", func(t *testing.T) {
		left := a.And(b).And(c)
		right := a.And(b.And(c))
		assert.Equal(t, left.Len(), right.Len())

		ctx := context.Background()
		l, err := left.Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		r, err := right.Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		assert.Equal(t, l, r)
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		_ = a.And(c)
		assert.Equal(t, 1, a.Len())
	})
}

func TestRule_Or(t *testing.T) {
	_, err := NewRule(always(true)).Or(NewRule(always(false)))

	assert.ErrorIs(t, err, ErrOrNotSupported)
}

func TestRule_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("empty rule matches", func(t *testing.T) {
		ok, err := Rule{}.Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("all predicates must hold", func(t *testing.T) {
		ok, err := NewRule(always(true), always(false)).Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = NewRule(always(true), always(true)).Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("every predicate is evaluated", func(t *testing.T) {
		var calls atomic.Int32
		counting := func(ok bool) CheckerFunc {
			return func(context.Context, *Message, *State) (bool, error) {
				calls.Add(1)
				return ok, nil
			}
		}

		ok, err := NewRule(counting(false), counting(true), counting(false)).Check(ctx, &Message{}, NewState(nil))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("predicate error fails the check", func(t *testing.T) {
		boom := errors.New("boom")
		ok, err := NewRule(always(true), func(context.Context, *Message, *State) (bool, error) {
			return false, boom
		}).Check(ctx, &Message{}, NewState(nil))

		assert.False(t, ok)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("predicate panic is recovered", func(t *testing.T) {
		ok, err := NewRule(func(context.Context, *Message, *State) (bool, error) {
			panic("checker exploded")
		}).Check(ctx, &Message{}, NewState(nil))

		assert.False(t, ok)
		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "checker exploded", pe.Value)
	})

	t.Run("nil functions are skipped", func(t *testing.T) {
		assert.Equal(t, 0, NewRule(nil).Len())
	})
}

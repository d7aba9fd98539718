package heap

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/scopeheap/alloc"
	"github.com/wippyai/scopeheap/errors"
)

func TestScope_ReleasesOnExit(t *testing.T) {
	h, budget := newTestHeap(t)
	var log []string

	err := h.Scope("main", func(s *Scope) error {
		if _, err := Create[record](s); err != nil {
			return err
		}
		_, err := Create(s, logDestructor(&log, "Y"))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Y"}, log)
	assert.Zero(t, budget.Live(), "X is freed without a log entry")
	assert.Equal(t, 0, h.Stats().Live)
}

func TestScope_BalancedLifecycle(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			h, budget := newTestHeap(t)
			var log []string

			err := h.Scope("main", func(s *Scope) error {
				for i := 0; i < n; i++ {
					var opts []CreateOption[record]
					if i%2 == 0 {
						opts = append(opts, logDestructor(&log, fmt.Sprint(i)))
					}
					if _, err := Create(s, opts...); err != nil {
						return err
					}
				}
				assert.Equal(t, n, s.Len())
				return nil
			})
			require.NoError(t, err)

			for i := 0; i < n; i += 2 {
				assert.Equal(t, 1, count(log, fmt.Sprint(i)), "destructor %d", i)
			}
			assert.Len(t, log, (n+1)/2)
			assert.Zero(t, budget.InUse())
		})
	}
}

func TestScope_ReleasesMostRecentFirst(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	err := h.Scope("main", func(s *Scope) error {
		for _, name := range []string{"a", "b", "c"} {
			if _, err := Create(s, logDestructor(&log, name)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, log)
}

func TestScope_DestructorsWaitForExit(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	err := h.Scope("main", func(s *Scope) error {
		_, err := Create(s, logDestructor(&log, "Y"))
		require.NoError(t, err)
		assert.Empty(t, log, "nothing is destroyed while the scope is open")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, log)
}

func TestScope_CleanupOnError(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string
	bail := stderrors.New("early return")

	err := h.Scope("main", func(s *Scope) error {
		if _, err := Create(s, logDestructor(&log, "Y")); err != nil {
			return err
		}
		return bail
	})
	assert.ErrorIs(t, err, bail)
	assert.Equal(t, []string{"Y"}, log)
}

func TestScope_CleanupOnPanic(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	assert.PanicsWithValue(t, "boom", func() {
		_ = h.Scope("main", func(s *Scope) error {
			if _, err := Create(s, logDestructor(&log, "Y")); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, []string{"Y"}, log)
	assert.Nil(t, h.Active())
}

func TestScope_CleanupCollectsErrors(t *testing.T) {
	h, _ := newTestHeap(t)
	first := stderrors.New("first")
	second := stderrors.New("second")
	var log []string

	err := h.Scope("main", func(s *Scope) error {
		if _, err := Create(s, WithDestructorErr(func(*int) error { return first })); err != nil {
			return err
		}
		if _, err := Create(s, logDestructor(&log, "ok")); err != nil {
			return err
		}
		_, err := Create(s, WithDestructorErr(func(*int) error { return second }))
		return err
	})
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"ok"}, log, "a failing destructor does not stop cleanup")
	assert.Equal(t, 0, h.Stats().Live)
}

func TestScope_NestedIndependent(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	err := h.Scope("outer", func(outer *Scope) error {
		err := outer.Scope("inner", func(inner *Scope) error {
			assert.Equal(t, "outer/inner", inner.Path())
			_, err := Create(inner, logDestructor(&log, "inner"))
			return err
		})
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"inner"}, log, "inner cells are gone before outer continues")
		assert.Same(t, outer, h.Active())

		_, err = Create(outer, logDestructor(&log, "outer"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, log)
}

func TestScope_GuardStyle(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	func() {
		s := h.Open("guard")
		defer s.Close()

		_, err := Create(s, logDestructor(&log, "g"))
		require.NoError(t, err)
	}()

	assert.Equal(t, []string{"g"}, log)
	assert.Nil(t, h.Active())
}

func TestScope_OpenNested(t *testing.T) {
	h, _ := newTestHeap(t)
	outer := h.Open("outer")

	inner, err := outer.Open("inner")
	require.NoError(t, err)
	assert.Equal(t, "outer/inner", inner.Path())
	assert.Same(t, outer, inner.Parent())

	_, err = outer.Open("sibling")
	assert.ErrorIs(t, err, errors.ErrScopeInactive)

	require.NoError(t, inner.Close())
	require.NoError(t, outer.Close())

	_, err = outer.Open("late")
	assert.ErrorIs(t, err, errors.ErrScopeClosed)
}

func TestScope_GuardClosesScopesLeftOpen(t *testing.T) {
	h, budget := newTestHeap(t)
	var log []string

	err := h.Scope("outer", func(s *Scope) error {
		_, err := Create(s, logDestructor(&log, "O"))
		require.NoError(t, err)

		child, err := s.Open("child")
		require.NoError(t, err)
		_, err = Create(child, logDestructor(&log, "C"))
		require.NoError(t, err)

		grandchild, err := child.Open("grandchild")
		require.NoError(t, err)
		_, err = Create(grandchild, logDestructor(&log, "G"))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"G", "C", "O"}, log)
	assert.Nil(t, h.Active())
	assert.Zero(t, budget.InUse())
	assert.Zero(t, h.Stats().OpenScopes)
}

func TestScope_GuardClosesScopesLeftOpenOnPanic(t *testing.T) {
	h, budget := newTestHeap(t)
	var log []string

	assert.Panics(t, func() {
		_ = h.Scope("outer", func(s *Scope) error {
			child, err := s.Open("child")
			require.NoError(t, err)
			_, err = Create(child, logDestructor(&log, "C"))
			require.NoError(t, err)
			panic("boom")
		})
	})

	assert.Equal(t, []string{"C"}, log)
	assert.Nil(t, h.Active())
	assert.Zero(t, budget.InUse())
}

func TestScope_CloseTwice(t *testing.T) {
	h, _ := newTestHeap(t)
	s := h.Open("main")
	require.NoError(t, s.Close())

	err := s.Close()
	assert.ErrorIs(t, err, errors.ErrScopeClosed)

	_, err = Create[int](s)
	assert.ErrorIs(t, err, errors.ErrScopeClosed)
}

func TestScope_CloseOutOfOrder(t *testing.T) {
	h, _ := newTestHeap(t)
	var log []string

	outer := h.Open("outer")
	_, err := Create(outer, logDestructor(&log, "o"))
	require.NoError(t, err)
	inner := h.Open("inner")

	err = outer.Close()
	assert.ErrorIs(t, err, errors.ErrScopeInactive)
	assert.Empty(t, log, "refused close releases nothing")

	_, err = Create[int](outer)
	assert.ErrorIs(t, err, errors.ErrScopeInactive, "only the innermost scope accepts cells")

	require.NoError(t, inner.Close())
	require.NoError(t, outer.Close())
	assert.Equal(t, []string{"o"}, log)
}

func TestScope_AllocationFailure(t *testing.T) {
	budget := alloc.NewBudget(200)
	h := NewHeap(WithAllocator(budget))

	var created int
	err := h.Scope("main", func(s *Scope) error {
		for {
			if _, err := Create[[64]byte](s); err != nil {
				return err
			}
			created++
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAllocation)
	assert.Positive(t, created)
	assert.Zero(t, budget.InUse(), "cells created before the failure are still cleaned up")
}

func TestHeap_StatsAndEvents(t *testing.T) {
	var events []EventType
	h, _ := newTestHeap(t, WithObserver(ObserverFunc(func(e Event) {
		events = append(events, e.Type)
	})))

	err := h.Scope("main", func(s *Scope) error {
		assert.Equal(t, 1, h.Stats().OpenScopes)
		c, err := Create[int](s)
		if err != nil {
			return err
		}
		return c.Retain()
	})
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventScopeOpened,
		EventCreated,
		EventRetained,
		EventReleased,
		EventScopeClosed,
	}, events, "the retained cell survives its scope")

	st := h.Stats()
	assert.Equal(t, uint64(1), st.Created)
	assert.Equal(t, 1, st.Live)
	assert.Equal(t, 0, st.OpenScopes)
	assert.Equal(t, 2, st.Blocks, "payload and header of the surviving cell")
	assert.Positive(t, st.InUse)
	assert.Zero(t, st.MemorySize, "budget has no addressable memory")
}

func TestHeap_Unsubscribe(t *testing.T) {
	h, _ := newTestHeap(t)
	var n int
	unsubscribe := h.Subscribe(ObserverFunc(func(Event) { n++ }))

	require.NoError(t, h.Scope("a", func(*Scope) error { return nil }))
	assert.Equal(t, 2, n)

	unsubscribe()
	require.NoError(t, h.Scope("b", func(*Scope) error { return nil }))
	assert.Equal(t, 2, n)
}

func TestHeap_CloseWithOpenScope(t *testing.T) {
	h, _ := newTestHeap(t)
	s := h.Open("main")

	assert.ErrorIs(t, h.Close(), errors.ErrScopeInactive)
	require.NoError(t, s.Close())
	require.NoError(t, h.Close())

	_, err := New[int](h)
	assert.ErrorIs(t, err, errors.ErrScopeClosed)
}

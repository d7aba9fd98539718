package heap

import (
	"go.uber.org/multierr"

	"github.com/wippyai/scopeheap/errors"
	"github.com/wippyai/scopeheap/resource"
)

// Escaped is a cell on its way out of the scope that created it. It holds
// one reference that must be handed to exactly one receiver, with Adopt or
// Release. Heap.Close reports escapes that were never resolved.
type Escaped[T any] struct {
	cell     *Cell[T]
	from     string
	handle   resource.Handle
	resolved bool
}

// TransferOut lets c outlive s. It adds the reference that s's cleanup will
// drop, so c survives the cleanup with its count unchanged, and parks c in
// the heap's escape table until a receiver resolves it. c must be alive and
// registered in s, and s must still be open.
func TransferOut[T any](s *Scope, c *Cell[T]) (*Escaped[T], error) {
	h := s.heap
	if c == nil {
		return nil, errors.InvalidInput(errors.PhaseTransfer, "nil cell")
	}
	if err := s.usable(errors.PhaseTransfer); err != nil {
		return nil, err
	}
	if !c.Alive() {
		return nil, h.violation(errors.Released(errors.PhaseTransfer, errors.SplitPath(s.path), c.goType, c.id))
	}
	if !s.holds(c) {
		return nil, errors.New(errors.PhaseTransfer, errors.KindNotFound).
			Path(errors.SplitPath(s.path)...).
			GoType(c.goType).
			Value(c.id).
			Detail("cell %d is not registered in this scope", c.id).
			Build()
	}

	c.count++
	handle, err := h.escapes.Park(s.path, c)
	if err != nil {
		c.count--
		return nil, err
	}

	return &Escaped[T]{cell: c, from: s.path, handle: handle}, nil
}

// Cell returns the escaped cell so the receiver can inspect it before
// deciding where it lives.
func (e *Escaped[T]) Cell() *Cell[T] { return e.cell }

// From returns the path of the scope the cell escaped from.
func (e *Escaped[T]) From() string { return e.from }

// Handle returns the escape table handle.
func (e *Escaped[T]) Handle() resource.Handle { return e.handle }

// Resolved reports whether Adopt or Release already ran.
func (e *Escaped[T]) Resolved() bool { return e.resolved }

// Adopt registers the escaped cell in target, which takes over the
// reference TransferOut added. target must be open.
func (e *Escaped[T]) Adopt(target *Scope) (*Cell[T], error) {
	h := e.cell.heap
	if err := e.claimable(errors.PhaseAdopt); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.InvalidInput(errors.PhaseAdopt, "nil target scope")
	}
	if target.heap != h {
		return nil, errors.New(errors.PhaseAdopt, errors.KindInvalidInput).
			Path(errors.SplitPath(target.path)...).
			GoType(e.cell.goType).
			Value(e.cell.id).
			Detail("target scope belongs to another heap").
			Build()
	}
	if target.closed {
		return nil, h.violation(errors.ScopeClosed(errors.PhaseAdopt, errors.SplitPath(target.path)))
	}

	e.resolved = true
	target.push(e.cell)
	h.escapes.Claim(e.handle, target.path)
	return e.cell, nil
}

// Release resolves the escape by dropping its reference instead of
// registering it anywhere.
func (e *Escaped[T]) Release() error {
	if err := e.claimable(errors.PhaseAdopt); err != nil {
		return err
	}
	e.resolved = true
	_, err := e.cell.heap.escapes.Drop(e.handle)
	return err
}

func (e *Escaped[T]) claimable(phase errors.Phase) error {
	if !e.resolved {
		if v, ok := e.cell.heap.escapes.Get(e.handle); ok && v == resource.Releaser(e.cell) {
			return nil
		}
	}
	return errors.New(phase, errors.KindNotFound).
		Path(errors.SplitPath(e.from)...).
		GoType(e.cell.goType).
		Value(e.cell.id).
		Detail("escape of cell %d already resolved", e.cell.id).
		Build()
}

// Return runs body in a scope nested in s and moves the cell body returns
// into s: the cell is transferred out before the nested scope's cleanup
// and adopted by s right after it. A nil cell with a nil error returns
// (nil, nil). If the nested cleanup fails, the escaped cell is released and
// the error returned, so nothing is left pending.
func Return[T any](s *Scope, name string, body func(*Scope) (*Cell[T], error)) (*Cell[T], error) {
	var esc *Escaped[T]
	err := s.Scope(name, func(inner *Scope) error {
		c, err := body(inner)
		if err != nil || c == nil {
			return err
		}
		esc, err = TransferOut(inner, c)
		return err
	})
	if esc == nil {
		return nil, err
	}
	if err != nil {
		return nil, multierr.Append(err, esc.Release())
	}
	return esc.Adopt(s)
}

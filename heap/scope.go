package heap

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/scopeheap/errors"
)

// entry is one registry node. It observes a cell; it does not own it.
type entry struct {
	cell tracked
	next *entry
}

// Scope is a dynamic scope: every cell created in it is registered here and
// released when the scope closes.
type Scope struct {
	heap   *Heap
	parent *Scope
	head   *entry // most recently registered first
	name   string
	path   string
	len    int
	closed bool
}

// Open pushes a new scope nested in the innermost open scope (or a root
// scope when none is open). The caller must Close it, typically with defer.
func (h *Heap) Open(name string) *Scope {
	if name == "" {
		name = "scope"
	}
	s := &Scope{
		heap:   h,
		parent: h.active,
		name:   name,
		path:   name,
	}
	if s.parent != nil {
		s.path = s.parent.path + "/" + name
	}
	h.active = s

	h.logger.Debug("scope opened", zap.String("scope", s.path))
	h.emit(Event{Type: EventScopeOpened, Scope: s.path})
	return s
}

// Scope runs body in a new scope and closes it on every exit path,
// including a panic, which is re-raised after cleanup. Scopes body opened
// and left open are closed first, innermost first. The returned error
// combines body's error with any cleanup error.
func (h *Heap) Scope(name string, body func(*Scope) error) error {
	return h.Open(name).run(body)
}

// Scope runs body in a scope nested in s. s must be the innermost open
// scope.
func (s *Scope) Scope(name string, body func(*Scope) error) error {
	if err := s.usable(errors.PhaseCreate); err != nil {
		return err
	}
	return s.heap.Scope(name, body)
}

// Open pushes a scope nested in s. s must be the innermost open scope.
func (s *Scope) Open(name string) (*Scope, error) {
	if err := s.usable(errors.PhaseCreate); err != nil {
		return nil, err
	}
	return s.heap.Open(name), nil
}

func (s *Scope) run(body func(*Scope) error) (err error) {
	defer func() {
		r := recover()
		cerr := multierr.Append(s.unwind(), s.Close())
		if r != nil {
			if cerr != nil {
				s.heap.logger.Warn("cleanup failed during panic",
					zap.String("scope", s.path),
					zap.Error(cerr))
			}
			panic(r)
		}
		err = multierr.Append(err, cerr)
	}()
	return body(s)
}

// unwind closes scopes opened under s and left open, innermost first.
func (s *Scope) unwind() error {
	h := s.heap
	var err error
	for a := h.active; a != nil && a != s && a.nestedIn(s); a = h.active {
		h.logger.Warn("closing scope left open",
			zap.String("scope", a.path),
			zap.String("parent", s.path))
		err = multierr.Append(err, a.Close())
	}
	return err
}

func (s *Scope) nestedIn(outer *Scope) bool {
	for p := s.parent; p != nil; p = p.parent {
		if p == outer {
			return true
		}
	}
	return false
}

// Close releases every registered cell, most recent first, drops the
// registry and pops the scope. Closing twice, or while a nested scope is
// still open, is an error and releases nothing.
func (s *Scope) Close() error {
	h := s.heap
	if s.closed {
		return h.violation(errors.ScopeClosed(errors.PhaseCleanup, errors.SplitPath(s.path)))
	}
	if h.active != s {
		return h.violation(errors.ScopeInactive(errors.PhaseCleanup, errors.SplitPath(s.path),
			"a nested scope is still open"))
	}
	s.closed = true
	h.active = s.parent

	released := s.len
	var err error
	for e := s.head; e != nil; {
		err = multierr.Append(err, e.cell.Release())
		next := e.next
		e.cell, e.next = nil, nil
		e = next
	}
	s.head = nil
	s.len = 0

	h.logger.Debug("scope closed",
		zap.String("scope", s.path),
		zap.Int("released", released))
	h.emit(Event{Type: EventScopeClosed, Scope: s.path})
	return err
}

// usable checks that s can take new registrations.
func (s *Scope) usable(phase errors.Phase) error {
	if s.closed {
		return s.heap.violation(errors.ScopeClosed(phase, errors.SplitPath(s.path)))
	}
	if s.heap.active != s {
		return s.heap.violation(errors.ScopeInactive(phase, errors.SplitPath(s.path),
			"not the innermost open scope"))
	}
	return nil
}

func (s *Scope) push(c tracked) {
	s.head = &entry{cell: c, next: s.head}
	s.len++
}

func (s *Scope) holds(c tracked) bool {
	for e := s.head; e != nil; e = e.next {
		if e.cell == c {
			return true
		}
	}
	return false
}

// Name returns the scope's own name.
func (s *Scope) Name() string { return s.name }

// Path returns the slash-separated names from the root scope to s.
func (s *Scope) Path() string { return s.path }

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Heap returns the heap the scope belongs to.
func (s *Scope) Heap() *Heap { return s.heap }

// Len returns the number of registry entries.
func (s *Scope) Len() int { return s.len }

// Closed reports whether the scope has exited.
func (s *Scope) Closed() bool { return s.closed }

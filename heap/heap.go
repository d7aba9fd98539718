package heap

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/scopeheap"
	"github.com/wippyai/scopeheap/alloc"
	"github.com/wippyai/scopeheap/errors"
	"github.com/wippyai/scopeheap/resource"
)

// Stats is a snapshot of heap counters.
type Stats struct {
	Created    uint64
	Destroyed  uint64
	Escaped    uint64
	Adopted    uint64
	Live       int
	Pending    int
	OpenScopes int

	// Allocator footprint, when the allocator reports it.
	InUse      uint64
	Blocks     int
	MemorySize uint32
}

// Heap owns the allocator, the stack of open scopes and the table of
// escaped cells waiting for a receiver. A Heap is not safe for concurrent
// use; each goroutine that needs scoped ownership should have its own.
type Heap struct {
	alloc     scopeheap.Allocator
	logger    *zap.Logger
	escapes   *resource.Table
	active    *Scope
	observers []observerSlot
	stats     Stats
	nextID    uint64
	nextObs   int
	strict    bool
	closed    bool
}

// Option configures a Heap.
type Option func(*Heap)

// WithAllocator sets the host allocator cells reserve storage from.
// The default is an unlimited alloc.Budget.
func WithAllocator(a scopeheap.Allocator) Option {
	return func(h *Heap) {
		if a != nil {
			h.alloc = a
		}
	}
}

// WithLogger sets the heap's logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver subscribes o before any event is emitted.
func WithObserver(o Observer) Option {
	return func(h *Heap) {
		h.Subscribe(o)
	}
}

// WithStrict makes ownership contract violations (over-release, use after
// release, closing a scope twice or out of order) panic instead of
// returning an error.
func WithStrict(strict bool) Option {
	return func(h *Heap) {
		h.strict = strict
	}
}

// NewHeap creates a heap with no open scope.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		alloc:   alloc.NewBudget(0),
		logger:  Logger(),
		escapes: resource.NewTable(),
	}
	h.escapes.Subscribe(escapeEvents{h: h})
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Allocator returns the host allocator.
func (h *Heap) Allocator() scopeheap.Allocator {
	return h.alloc
}

// Memory returns the allocator's memory view when it has one.
func (h *Heap) Memory() (scopeheap.Memory, bool) {
	p, ok := h.alloc.(scopeheap.MemoryProvider)
	if !ok {
		return nil, false
	}
	return p.Memory(), true
}

// Active returns the innermost open scope, or nil.
func (h *Heap) Active() *Scope {
	return h.active
}

// Pending returns the number of escaped cells not yet adopted or released.
func (h *Heap) Pending() int {
	return h.escapes.Len()
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.Live = int(s.Created - s.Destroyed)
	s.Pending = h.escapes.Len()
	for sc := h.active; sc != nil; sc = sc.parent {
		s.OpenScopes++
	}
	if u, ok := h.alloc.(scopeheap.Usage); ok {
		s.InUse = u.InUse()
		s.Blocks = u.Live()
	}
	if mem, ok := h.Memory(); ok {
		if sz, ok := mem.(scopeheap.MemorySizer); ok {
			s.MemorySize = sz.Size()
		}
	}
	return s
}

// Subscribe adds an observer and returns a function that removes it.
func (h *Heap) Subscribe(o Observer) (unsubscribe func()) {
	h.nextObs++
	id := h.nextObs
	h.observers = append(h.observers, observerSlot{o: o, id: id})
	return func() {
		for i, slot := range h.observers {
			if slot.id == id {
				h.observers = append(h.observers[:i], h.observers[i+1:]...)
				return
			}
		}
	}
}

// Close releases escaped cells nobody adopted and stops accepting new
// cells. Unresolved escapes are logged and reported as a leaked error.
// Close fails while a scope is still open.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	if h.active != nil {
		return h.violation(errors.ScopeInactive(errors.PhaseCleanup, errors.SplitPath(h.active.path),
			"heap closed with a scope still open"))
	}
	h.closed = true

	leaked := h.escapes.Len()
	h.escapes.Each(func(handle resource.Handle, origin string, v resource.Releaser) bool {
		fields := []zap.Field{
			zap.Uint32("handle", uint32(handle)),
			zap.String("origin", origin),
		}
		if d, ok := v.(describer); ok {
			fields = append(fields, zap.Uint64("id", d.ID()), zap.String("type", d.GoType()))
		}
		h.logger.Warn("escaped cell never adopted", fields...)
		return true
	})

	var err error
	if leaked > 0 {
		err = errors.Leaked(leaked)
	}
	return multierr.Append(err, h.escapes.Close())
}

// violation reports a broken ownership contract.
func (h *Heap) violation(err *errors.Error) error {
	if h.strict {
		panic(err)
	}
	return err
}

func (h *Heap) emit(e Event) {
	for _, slot := range h.observers {
		slot.o.OnHeapEvent(e)
	}
}

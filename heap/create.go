package heap

import (
	"github.com/wippyai/scopeheap/errors"
)

type createConfig[T any] struct {
	destructor func(*T) error
	value      T
	hasValue   bool
}

// CreateOption configures a cell at creation.
type CreateOption[T any] func(*createConfig[T])

// WithDestructor runs fn on the payload when the cell is destroyed.
func WithDestructor[T any](fn func(*T)) CreateOption[T] {
	return func(c *createConfig[T]) {
		if fn == nil {
			c.destructor = nil
			return
		}
		c.destructor = func(v *T) error {
			fn(v)
			return nil
		}
	}
}

// WithDestructorErr runs fn on the payload when the cell is destroyed and
// reports its error from the Release that destroyed it.
func WithDestructorErr[T any](fn func(*T) error) CreateOption[T] {
	return func(c *createConfig[T]) {
		c.destructor = fn
	}
}

// WithValue initializes the payload to v instead of the zero value.
func WithValue[T any](v T) CreateOption[T] {
	return func(c *createConfig[T]) {
		c.value = v
		c.hasValue = true
	}
}

// Create allocates a zeroed payload and its cell with a count of one and
// registers the cell in s, which must be the innermost open scope. The cell
// is released when s exits unless it is transferred out first.
func Create[T any](s *Scope, opts ...CreateOption[T]) (*Cell[T], error) {
	if err := s.usable(errors.PhaseCreate); err != nil {
		return nil, err
	}
	size, align := layout[T]()
	c, err := allocate(s.heap, s.path, size, align, opts, nil)
	if err != nil {
		return nil, err
	}
	s.push(c)
	return c, nil
}

// New allocates a detached cell that belongs to no scope. The caller holds
// the only reference and must Release it.
func New[T any](h *Heap, opts ...CreateOption[T]) (*Cell[T], error) {
	size, align := layout[T]()
	return allocate(h, "", size, align, opts, nil)
}

// allocate reserves payload and header storage, then builds the cell.
// A failed header reservation returns the payload block first.
func allocate[T any](h *Heap, origin string, size, align uint32, opts []CreateOption[T], init func(*Cell[T])) (*Cell[T], error) {
	goType := typeName[T]()
	path := errors.SplitPath(origin)

	if h.closed {
		return nil, errors.New(errors.PhaseCreate, errors.KindScopeClosed).
			Path(path...).
			GoType(goType).
			Detail("heap closed").
			Build()
	}

	var cfg createConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	ptr, err := h.alloc.Alloc(size, align)
	if err != nil {
		return nil, allocationError(path, goType, err)
	}
	hdr, err := h.alloc.Alloc(headerSize, headerAlign)
	if err != nil {
		h.alloc.Free(ptr, size, align)
		return nil, allocationError(path, goType, err)
	}

	h.nextID++
	c := &Cell[T]{
		heap:       h,
		payload:    new(T),
		destructor: cfg.destructor,
		origin:     origin,
		goType:     goType,
		id:         h.nextID,
		count:      1,
		ptr:        ptr,
		size:       size,
		align:      align,
		hdr:        hdr,
	}
	if cfg.hasValue {
		*c.payload = cfg.value
	}
	if init != nil {
		init(c)
	}

	h.stats.Created++
	h.emit(c.event(EventCreated))
	return c, nil
}

func allocationError(path []string, goType string, cause error) error {
	return errors.New(errors.PhaseCreate, errors.KindAllocation).
		Path(path...).
		GoType(goType).
		Detail("cannot reserve cell storage").
		Cause(cause).
		Build()
}

package heap

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/scopeheap/errors"
)

// cellHeader mirrors the bookkeeping a cell needs besides its payload. Its
// size is what a cell reserves from the allocator for itself.
type cellHeader struct {
	payload    uintptr
	destructor uintptr
	count      int
}

var (
	headerSize  = uint32(unsafe.Sizeof(cellHeader{}))
	headerAlign = uint32(unsafe.Alignof(cellHeader{}))
)

// tracked is what a scope registry needs from a cell.
type tracked interface {
	Release() error
	ID() uint64
}

type describer interface {
	ID() uint64
	GoType() string
}

// Cell is a reference-counted owner of one payload. The payload is
// destroyed exactly once, when the count drops from 1 to 0.
type Cell[T any] struct {
	heap       *Heap
	payload    *T
	destructor func(*T) error
	origin     string
	goType     string
	id         uint64
	count      int
	ptr        uint32
	size       uint32
	align      uint32
	hdr        uint32
}

// ID returns the cell's heap-unique id.
func (c *Cell[T]) ID() uint64 { return c.id }

// Origin returns the path of the scope that created the cell, or "" for a
// detached cell.
func (c *Cell[T]) Origin() string { return c.origin }

// GoType returns the payload's type name.
func (c *Cell[T]) GoType() string { return c.goType }

// Count returns the number of outstanding owners.
func (c *Cell[T]) Count() int { return c.count }

// Alive reports whether the payload has not been destroyed.
func (c *Cell[T]) Alive() bool { return c.count > 0 }

// Value returns the payload, or nil once the cell is destroyed.
func (c *Cell[T]) Value() *T { return c.payload }

// Get returns the payload, or a released error once the cell is destroyed.
func (c *Cell[T]) Get() (*T, error) {
	if c.count <= 0 {
		return nil, c.heap.violation(errors.Released(errors.PhaseRetain, errors.SplitPath(c.origin), c.goType, c.id))
	}
	return c.payload, nil
}

// Retain adds an owner.
func (c *Cell[T]) Retain() error {
	if c.count <= 0 {
		return c.heap.violation(errors.Released(errors.PhaseRetain, errors.SplitPath(c.origin), c.goType, c.id))
	}
	c.count++
	c.heap.emit(c.event(EventRetained))
	return nil
}

// Release drops an owner. On the last one it runs the destructor and
// returns both storage blocks to the allocator. A destructor error is
// returned but the cell is destroyed regardless.
func (c *Cell[T]) Release() error {
	if c.count <= 0 {
		return c.heap.violation(errors.OverRelease(errors.SplitPath(c.origin), c.goType, c.id))
	}
	c.count--
	c.heap.emit(c.event(EventReleased))
	if c.count > 0 {
		return nil
	}
	return c.destroy()
}

func (c *Cell[T]) destroy() error {
	h := c.heap

	var err error
	if c.destructor != nil {
		if derr := c.destructor(c.payload); derr != nil {
			err = errors.Destructor(errors.SplitPath(c.origin), c.goType, derr)
		}
	}

	h.alloc.Free(c.ptr, c.size, c.align)
	h.alloc.Free(c.hdr, headerSize, headerAlign)
	c.payload = nil
	c.destructor = nil
	h.stats.Destroyed++

	h.logger.Debug("cell destroyed",
		zap.Uint64("id", c.id),
		zap.String("type", c.goType),
		zap.String("origin", c.origin))
	h.emit(c.event(EventDestroyed))
	return err
}

func (c *Cell[T]) event(t EventType) Event {
	return Event{
		Type:   t,
		CellID: c.id,
		Scope:  c.origin,
		GoType: c.goType,
		Count:  c.count,
	}
}

func (c *Cell[T]) String() string {
	return fmt.Sprintf("cell#%d(%s, count=%d)", c.id, c.goType, c.count)
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func layout[T any]() (size, align uint32) {
	var zero T
	size = uint32(unsafe.Sizeof(zero))
	if size == 0 {
		size = 1
	}
	return size, uint32(unsafe.Alignof(zero))
}

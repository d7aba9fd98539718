// Package heap implements scoped, reference-counted ownership.
//
// # Cells
//
// A Cell owns one payload and counts its owners. It starts at one; Retain
// adds an owner and Release drops one. The release that reaches zero runs
// the optional destructor and returns the payload and cell storage to the
// heap's allocator:
//
//	conn, err := heap.Create(s, heap.WithDestructor(func(c *Conn) { c.Close() }))
//
// Releasing a destroyed cell is reported as an over_release error (or a
// panic with WithStrict) and never destroys twice.
//
// # Scopes
//
// Every cell created in a Scope is registered there and released when the
// scope exits. Heap.Scope and Scope.Scope run a body and close the scope on
// every exit path:
//
//	err := h.Scope("request", func(s *heap.Scope) error {
//	    buf, err := heap.Create[bytes.Buffer](s)
//	    ...
//	})
//
// Heap.Open returns the scope for guard-style use with defer s.Close().
// Only the innermost open scope accepts new cells.
//
// # Ownership Transfer
//
// TransferOut adds a reference before the scope's cleanup drops one, so the
// cell survives with its count unchanged. The returned Escaped must be
// resolved once: Adopt registers it in an enclosing scope, Release drops
// it. Return does the whole hand-off in one call.
//
//	cell, err := heap.Return(outer, "build", func(s *heap.Scope) (*heap.Cell[Result], error) {
//	    return heap.Create[Result](s)
//	})
//
// # Storage
//
// Cells reserve a payload block and a header block from the heap's
// scopeheap.Allocator. Allocation failures are returned, never fatal. With
// an allocator that exposes memory (alloc.Linear), CreateBlock places the
// payload itself in that memory.
package heap

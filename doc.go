// Package scopeheap provides scoped, reference-counted ownership of heap
// values.
//
// A function opens a dynamic scope, creates values inside it, and every value
// whose ownership was not transferred out is released when the scope exits,
// whichever way it exits.
//
// # Architecture Overview
//
//	scopeheap/         Root package with the Allocator and Memory interfaces
//	├── heap/          Cells, scopes, create/release and ownership transfer
//	├── alloc/         Host allocators (byte budget, wazero linear memory)
//	├── resource/      Handle table holding escaped cells until adopted
//	├── script/        HCL scenario language driving a heap
//	├── errors/        Structured error types
//	└── cmd/scopetrace CLI running scenarios and showing their event trace
//
// # Quick Start
//
//	h := heap.NewHeap()
//	defer h.Close()
//
//	err := h.Scope("request", func(s *heap.Scope) error {
//	    buf, err := heap.Create[bytes.Buffer](s)
//	    if err != nil {
//	        return err
//	    }
//	    buf.Value().WriteString("hello")
//	    return nil
//	}) // buf is released here
//
// # Returning Values
//
// A value that must outlive its scope is returned with heap.Return, which
// moves it into the enclosing scope in one step:
//
//	conn, err := heap.Return(outer, "dial", func(s *heap.Scope) (*heap.Cell[Conn], error) {
//	    return heap.Create(s, heap.WithDestructor(func(c *Conn) { c.Close() }))
//	})
//
// The two-step form (TransferOut, then Adopt or Release on the receiving
// side) is available for callers that need to hold the escaped value before
// deciding where it lives. Unresolved escapes are reported by Heap.Close.
//
// # Concurrency
//
// A Heap and its scopes belong to a single goroutine. Counts are not atomic.
package scopeheap

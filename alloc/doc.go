// Package alloc provides host allocators that scopeheap cells reserve their
// storage from.
//
// # Implementations
//
// Budget: accounting allocator for Go-typed payloads
//
//   - Hands out opaque block ids, never addressable memory
//   - Optional byte limit; exhaustion is returned as an allocation error
//   - Tracks live blocks, bytes in use and the high-water mark
//
// Linear: first-fit allocator over a wazero linear memory
//
//   - Blocks are real offsets, readable and writable through Memory()
//   - Free blocks are kept sorted by offset and coalesced on free
//   - Memory grows page-wise (64 KiB) up to LinearConfig.MaxPages
//   - Blocks are zeroed on allocation
//
// # Usage Example
//
//	lin, err := alloc.NewLinear(ctx, alloc.LinearConfig{InitialPages: 1, MaxPages: 16})
//	if err != nil {
//	    return err
//	}
//	defer lin.Close(ctx)
//
//	ptr, err := lin.Alloc(256, 8)
//	if err != nil {
//	    return err
//	}
//	_ = lin.Memory().WriteU32(ptr, 0xCAFE)
//	lin.Free(ptr, 256, 8)
//
// Neither allocator is safe for concurrent use.
package alloc

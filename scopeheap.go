package scopeheap

// Memory is a byte-addressed view of allocator-backed storage.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of a Memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator is the host allocate/free primitive that cells reserve
// their storage from. A zero pointer is never a valid allocation.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// MemoryProvider is implemented by allocators whose blocks are addressable
// through a Memory.
type MemoryProvider interface {
	Memory() Memory
}

// Usage is implemented by allocators that can report their live footprint.
type Usage interface {
	InUse() uint64
	Live() int
}

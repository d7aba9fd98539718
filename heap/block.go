package heap

import (
	"math"

	"github.com/wippyai/scopeheap"
	"github.com/wippyai/scopeheap/errors"
)

const blockAlign = 8

// Block is a payload stored in allocator memory rather than on the Go heap.
// Offsets passed to its methods are relative to the block start.
type Block struct {
	mem  scopeheap.Memory
	Ptr  uint32
	Size uint32
}

// CreateBlock reserves size bytes of zeroed allocator memory as the payload
// of a new cell registered in s. The heap's allocator must implement
// scopeheap.MemoryProvider.
func CreateBlock(s *Scope, size uint32, opts ...CreateOption[Block]) (*Cell[Block], error) {
	if err := s.usable(errors.PhaseCreate); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, errors.InvalidInput(errors.PhaseCreate, "block size must be positive")
	}
	mem, ok := s.heap.Memory()
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseCreate, "allocator has no addressable memory")
	}

	c, err := allocate(s.heap, s.path, size, blockAlign, opts, func(c *Cell[Block]) {
		*c.payload = Block{mem: mem, Ptr: c.ptr, Size: size}
	})
	if err != nil {
		return nil, err
	}
	s.push(c)
	return c, nil
}

func (b *Block) check(off uint32, n uint64) error {
	if uint64(off)+n > uint64(b.Size) {
		return errors.OutOfBounds(errors.PhaseAlloc, off, uint32(min(n, math.MaxUint32)), b.Size)
	}
	return nil
}

// Read returns a copy of n bytes at off.
func (b *Block) Read(off, n uint32) ([]byte, error) {
	if err := b.check(off, uint64(n)); err != nil {
		return nil, err
	}
	return b.mem.Read(b.Ptr+off, n)
}

// Write copies data to off.
func (b *Block) Write(off uint32, data []byte) error {
	if err := b.check(off, uint64(len(data))); err != nil {
		return err
	}
	return b.mem.Write(b.Ptr+off, data)
}

// ReadU8 reads the byte at off.
func (b *Block) ReadU8(off uint32) (uint8, error) {
	if err := b.check(off, 1); err != nil {
		return 0, err
	}
	return b.mem.ReadU8(b.Ptr + off)
}

// WriteU8 writes one byte at off.
func (b *Block) WriteU8(off uint32, v uint8) error {
	if err := b.check(off, 1); err != nil {
		return err
	}
	return b.mem.WriteU8(b.Ptr+off, v)
}

// ReadU32 reads a little-endian uint32 at off.
func (b *Block) ReadU32(off uint32) (uint32, error) {
	if err := b.check(off, 4); err != nil {
		return 0, err
	}
	return b.mem.ReadU32(b.Ptr + off)
}

// WriteU32 writes a little-endian uint32 at off.
func (b *Block) WriteU32(off, v uint32) error {
	if err := b.check(off, 4); err != nil {
		return err
	}
	return b.mem.WriteU32(b.Ptr+off, v)
}

// ReadU64 reads a little-endian uint64 at off.
func (b *Block) ReadU64(off uint32) (uint64, error) {
	if err := b.check(off, 8); err != nil {
		return 0, err
	}
	return b.mem.ReadU64(b.Ptr + off)
}

// WriteU64 writes a little-endian uint64 at off.
func (b *Block) WriteU64(off uint32, v uint64) error {
	if err := b.check(off, 8); err != nil {
		return err
	}
	return b.mem.WriteU64(b.Ptr+off, v)
}

// Bytes returns a copy of the whole block.
func (b *Block) Bytes() ([]byte, error) {
	return b.Read(0, b.Size)
}

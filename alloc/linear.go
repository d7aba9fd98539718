package alloc

import (
	"context"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/scopeheap"
	"github.com/wippyai/scopeheap/errors"
)

// heapBase keeps offset 0 out of the free list so a zero pointer is never
// a valid block.
const heapBase = 8

type span struct {
	off  uint32
	size uint32
}

func (s span) end() uint64 { return uint64(s.off) + uint64(s.size) }

// Linear is a first-fit allocator over a wazero linear memory.
type Linear struct {
	runtime  wazero.Runtime
	module   api.Module
	mem      api.Memory
	view     *Memory
	live     map[uint32]uint32
	free     []span // sorted by offset, never adjacent
	inUse    uint64
	peak     uint64
	maxPages uint32
}

// NewLinear instantiates a memory-only module and prepares its free list.
func NewLinear(ctx context.Context, cfg LinearConfig) (*Linear, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MaxPages))

	mod, err := rt.Instantiate(ctx, memoryModule(cfg.InitialPages, cfg.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate memory module: %w", err)
	}

	mem := mod.ExportedMemory(memoryExport)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("memory module has no %q export", memoryExport)
	}

	l := &Linear{
		runtime:  rt,
		module:   mod,
		mem:      mem,
		view:     &Memory{mem: mem},
		live:     make(map[uint32]uint32, 64),
		maxPages: cfg.MaxPages,
	}
	l.free = append(l.free, span{off: heapBase, size: mem.Size() - heapBase})
	return l, nil
}

// Alloc reserves a zeroed block of size bytes aligned to align.
// A zero size reserves one byte.
func (l *Linear) Alloc(size, align uint32) (uint32, error) {
	align, err := checkAlign(align)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		size = 1
	}

	ptr, ok := l.carve(size, align)
	if !ok {
		if err := l.grow(size, align); err != nil {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align, err)
		}
		if ptr, ok = l.carve(size, align); !ok {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align, nil)
		}
	}

	if buf, ok := l.mem.Read(ptr, size); ok {
		clear(buf)
	}

	l.live[ptr] = size
	l.inUse += uint64(size)
	if l.inUse > l.peak {
		l.peak = l.inUse
	}
	return ptr, nil
}

func (l *Linear) carve(size, align uint32) (uint32, bool) {
	for i, s := range l.free {
		start := alignUp(uint64(s.off), uint64(align))
		end := start + uint64(size)
		if end > s.end() {
			continue
		}

		var parts []span
		if lead := start - uint64(s.off); lead > 0 {
			parts = append(parts, span{off: s.off, size: uint32(lead)})
		}
		if tail := s.end() - end; tail > 0 {
			parts = append(parts, span{off: uint32(end), size: uint32(tail)})
		}
		l.free = slices.Replace(l.free, i, i+1, parts...)
		return uint32(start), true
	}
	return 0, false
}

// grow adds enough pages for a block of size bytes, counting a free span
// that already reaches the end of memory.
func (l *Linear) grow(size, align uint32) error {
	need := uint64(size) + uint64(align) - 1
	if n := len(l.free); n > 0 && l.free[n-1].end() == uint64(l.mem.Size()) {
		if tail := uint64(l.free[n-1].size); tail < need {
			need -= tail
		} else {
			need = 1
		}
	}
	pages := uint32((need + PageSize - 1) / PageSize)
	current := l.mem.Size() / PageSize
	if current+pages > l.maxPages {
		return fmt.Errorf("growing by %d page(s) exceeds limit of %d", pages, l.maxPages)
	}
	prev, ok := l.mem.Grow(pages)
	if !ok {
		return fmt.Errorf("memory grow by %d page(s) refused", pages)
	}
	l.insert(span{off: prev * PageSize, size: pages * PageSize})
	return nil
}

// Free returns a block to the free list. Unknown pointers are logged and
// ignored, which also covers double frees.
func (l *Linear) Free(ptr, size, align uint32) {
	recorded, ok := l.live[ptr]
	if !ok {
		Logger().Warn("linear: free of unknown block",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if size != 0 && recorded != size {
		Logger().Warn("linear: free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("recorded", recorded))
	}
	delete(l.live, ptr)
	l.inUse -= uint64(recorded)
	l.insert(span{off: ptr, size: recorded})
}

// insert adds s to the free list, merging it with adjacent neighbours.
func (l *Linear) insert(s span) {
	i, _ := slices.BinarySearchFunc(l.free, s.off, func(e span, off uint32) int {
		switch {
		case e.off < off:
			return -1
		case e.off > off:
			return 1
		}
		return 0
	})

	if i < len(l.free) && s.end() == uint64(l.free[i].off) {
		s.size += l.free[i].size
		l.free = slices.Delete(l.free, i, i+1)
	}
	if i > 0 && l.free[i-1].end() == uint64(s.off) {
		l.free[i-1].size += s.size
		return
	}
	l.free = slices.Insert(l.free, i, s)
}

// Memory returns the byte view over the linear memory.
func (l *Linear) Memory() scopeheap.Memory { return l.view }

// Size returns the current memory size in bytes.
func (l *Linear) Size() uint32 { return l.mem.Size() }

// InUse returns the number of bytes currently reserved.
func (l *Linear) InUse() uint64 { return l.inUse }

// Peak returns the highest InUse value observed.
func (l *Linear) Peak() uint64 { return l.peak }

// Live returns the number of outstanding blocks.
func (l *Linear) Live() int { return len(l.live) }

// FreeSpans returns the number of disjoint free ranges.
func (l *Linear) FreeSpans() int { return len(l.free) }

// Close releases the wazero runtime and its memory.
func (l *Linear) Close(ctx context.Context) error {
	l.live = nil
	l.free = nil
	return l.runtime.Close(ctx)
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

package alloc

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/scopeheap/errors"
)

// Budget is an accounting allocator for payloads that live on the Go heap.
// It returns opaque block ids and enforces an optional byte limit, so
// exhaustion can be exercised without real memory pressure.
type Budget struct {
	live  map[uint32]uint32
	limit uint64
	inUse uint64
	peak  uint64
	next  uint32
}

// NewBudget creates a Budget. A zero limit means unlimited.
func NewBudget(limit uint64) *Budget {
	return &Budget{
		live:  make(map[uint32]uint32, 64),
		limit: limit,
	}
}

// Alloc reserves size bytes and returns a block id.
func (b *Budget) Alloc(size, align uint32) (uint32, error) {
	if _, err := checkAlign(align); err != nil {
		return 0, err
	}
	if b.limit > 0 && b.inUse+uint64(size) > b.limit {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align,
			fmt.Errorf("budget of %d bytes exhausted (%d in use)", b.limit, b.inUse))
	}

	id := b.nextID()
	b.live[id] = size
	b.inUse += uint64(size)
	if b.inUse > b.peak {
		b.peak = b.inUse
	}
	return id, nil
}

// Free returns a block. Unknown ids are logged and ignored.
func (b *Budget) Free(ptr, size, align uint32) {
	recorded, ok := b.live[ptr]
	if !ok {
		Logger().Warn("budget: free of unknown block",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if recorded != size {
		Logger().Warn("budget: free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("recorded", recorded))
	}
	delete(b.live, ptr)
	b.inUse -= uint64(recorded)
}

func (b *Budget) nextID() uint32 {
	for {
		b.next++
		if b.next == 0 {
			continue
		}
		if _, taken := b.live[b.next]; !taken {
			return b.next
		}
	}
}

// Limit returns the configured byte limit (0 for unlimited).
func (b *Budget) Limit() uint64 { return b.limit }

// InUse returns the number of bytes currently reserved.
func (b *Budget) InUse() uint64 { return b.inUse }

// Peak returns the highest InUse value observed.
func (b *Budget) Peak() uint64 { return b.peak }

// Live returns the number of outstanding blocks.
func (b *Budget) Live() int { return len(b.live) }

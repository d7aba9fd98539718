package alloc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/scopeheap"
	"github.com/wippyai/scopeheap/errors"
)

var _ scopeheap.Allocator = (*Linear)(nil)
var _ scopeheap.MemoryProvider = (*Linear)(nil)
var _ scopeheap.MemorySizer = (*Memory)(nil)

func newLinear(t *testing.T, cfg LinearConfig) *Linear {
	t.Helper()
	ctx := context.Background()
	l, err := NewLinear(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(ctx) })
	return l
}

func TestLinear_AllocAligned(t *testing.T) {
	l := newLinear(t, DefaultLinearConfig())

	p1, err := l.Alloc(3, 1)
	require.NoError(t, err)
	p2, err := l.Alloc(8, 16)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, p1, uint32(heapBase))
	assert.Zero(t, p2%16)
	assert.GreaterOrEqual(t, p2, p1+3)
	assert.Equal(t, uint64(11), l.InUse())
	assert.Equal(t, 2, l.Live())
}

func TestLinear_ReadWrite(t *testing.T) {
	l := newLinear(t, DefaultLinearConfig())
	mem := l.Memory()

	p, err := l.Alloc(16, 8)
	require.NoError(t, err)

	require.NoError(t, mem.WriteU32(p, 0xCAFEBABE))
	require.NoError(t, mem.WriteU64(p+8, 42))

	v, err := mem.ReadU32(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	w, err := mem.ReadU64(p + 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), w)

	_, err = mem.Read(l.Size()-2, 4)
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
}

func TestLinear_ZeroesReusedBlocks(t *testing.T) {
	l := newLinear(t, DefaultLinearConfig())
	mem := l.Memory()

	p, err := l.Alloc(8, 8)
	require.NoError(t, err)
	require.NoError(t, mem.WriteU64(p, ^uint64(0)))
	l.Free(p, 8, 8)

	q, err := l.Alloc(8, 8)
	require.NoError(t, err)
	assert.Equal(t, p, q, "first fit should hand back the freed block")

	v, err := mem.ReadU64(q)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestLinear_Coalesce(t *testing.T) {
	l := newLinear(t, DefaultLinearConfig())

	a, err := l.Alloc(64, 8)
	require.NoError(t, err)
	b, err := l.Alloc(64, 8)
	require.NoError(t, err)
	c, err := l.Alloc(64, 8)
	require.NoError(t, err)

	l.Free(a, 64, 8)
	l.Free(c, 64, 8)
	assert.Equal(t, 2, l.FreeSpans(), "a and c+tail are disjoint")

	l.Free(b, 64, 8)
	assert.Equal(t, 1, l.FreeSpans())
	assert.Zero(t, l.InUse())

	// The whole page is one block again.
	_, err = l.Alloc(PageSize-heapBase, 8)
	require.NoError(t, err)
}

func TestLinear_GrowAndExhaust(t *testing.T) {
	l := newLinear(t, LinearConfig{InitialPages: 1, MaxPages: 2})

	_, err := l.Alloc(PageSize, 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(2*PageSize), l.Size())

	before := l.InUse()
	_, err = l.Alloc(PageSize, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAllocation)
	assert.Equal(t, before, l.InUse())
}

func TestLinear_DoubleFreeIgnored(t *testing.T) {
	l := newLinear(t, DefaultLinearConfig())

	p, err := l.Alloc(32, 8)
	require.NoError(t, err)
	l.Free(p, 32, 8)
	l.Free(p, 32, 8)

	assert.Zero(t, l.InUse())
	assert.Equal(t, 1, l.FreeSpans())
}

func TestLinearConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  LinearConfig
		ok   bool
	}{
		{"default", DefaultLinearConfig(), true},
		{"zero initial", LinearConfig{InitialPages: 0, MaxPages: 4}, false},
		{"max below initial", LinearConfig{InitialPages: 4, MaxPages: 2}, false},
		{"max too large", LinearConfig{InitialPages: 1, MaxPages: 65536}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}
}

func TestMemoryModule_Encoding(t *testing.T) {
	bin := memoryModule(1, 300)
	assert.Equal(t, wasmHeader, bin[:8])
	// memory section: id, size, count, flags, min, max(300 = 0xac 0x02)
	assert.Equal(t, []byte{sectionMemory, 5, 1, limitsWithMax, 1, 0xac, 0x02}, bin[8:15])
	assert.Equal(t, byte(sectionExport), bin[15])
}

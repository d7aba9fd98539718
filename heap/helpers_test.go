package heap

import (
	"testing"

	"github.com/wippyai/scopeheap/alloc"
)

// record is a payload whose destructor appends its name to a shared log.
type record struct {
	name string
	log  *[]string
}

func logDestructor(log *[]string, name string) CreateOption[record] {
	return WithDestructor(func(r *record) {
		*log = append(*log, name)
	})
}

func newTestHeap(t *testing.T, opts ...Option) (*Heap, *alloc.Budget) {
	t.Helper()
	budget := alloc.NewBudget(0)
	h := NewHeap(append([]Option{WithAllocator(budget)}, opts...)...)
	return h, budget
}

func count(log []string, name string) int {
	n := 0
	for _, s := range log {
		if s == name {
			n++
		}
	}
	return n
}

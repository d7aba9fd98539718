package resource

import (
	"go.uber.org/multierr"

	"github.com/wippyai/scopeheap/errors"
)

// ErrClosed is returned by Park after Close.
var ErrClosed = errors.New(errors.PhaseTransfer, errors.KindInvalidInput).
	Detail("escape table closed").
	Build()

type entry struct {
	value  Releaser
	origin string
	valid  bool
}

// Table holds parked values under reusable handles.
type Table struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	live      int
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Park stores v and returns its handle. origin names where v came from.
func (t *Table) Park(origin string, v Releaser) (Handle, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if v == nil {
		return 0, errors.InvalidInput(errors.PhaseTransfer, "cannot park nil value")
	}

	e := entry{value: v, origin: origin, valid: true}

	var handle Handle
	if n := len(t.freeList); n > 0 {
		handle = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[handle-1] = e
	} else {
		t.entries = append(t.entries, e)
		handle = Handle(len(t.entries))
	}
	t.live++

	t.notify(Event{Type: EventParked, Handle: handle, Origin: origin, Value: v})
	return handle, nil
}

func (t *Table) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(t.entries) {
		return nil
	}
	e := &t.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get returns the parked value without removing it.
func (t *Table) Get(handle Handle) (Releaser, bool) {
	e := t.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

func (t *Table) remove(handle Handle) (entry, bool) {
	e := t.lookup(handle)
	if e == nil {
		return entry{}, false
	}
	out := *e
	*e = entry{}
	t.freeList = append(t.freeList, handle)
	t.live--
	return out, true
}

// Claim removes the value and hands it to receiver without releasing it.
func (t *Table) Claim(handle Handle, receiver string) (Releaser, bool) {
	e, ok := t.remove(handle)
	if !ok {
		return nil, false
	}
	t.notify(Event{Type: EventClaimed, Handle: handle, Origin: e.origin, Receiver: receiver, Value: e.value})
	return e.value, true
}

// Drop removes the value and releases it. Observers see the drop before
// the release runs. It reports whether the handle was parked, and the
// release error if any.
func (t *Table) Drop(handle Handle) (bool, error) {
	e, ok := t.remove(handle)
	if !ok {
		return false, nil
	}
	t.notify(Event{Type: EventDropped, Handle: handle, Origin: e.origin, Value: e.value})
	return true, e.value.Release()
}

// Len returns the number of parked values.
func (t *Table) Len() int {
	return t.live
}

// Each iterates over parked values in handle order.
func (t *Table) Each(fn func(Handle, string, Releaser) bool) {
	for i, e := range t.entries {
		if e.valid {
			if !fn(Handle(i+1), e.origin, e.value) {
				return
			}
		}
	}
}

// Subscribe adds an observer for table events. Observers stay for the
// table's lifetime.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Close drops everything still parked and stops accepting values.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	// Collect handles first; Drop mutates entries
	var handles []Handle
	t.Each(func(h Handle, _ string, _ Releaser) bool {
		handles = append(handles, h)
		return true
	})

	var err error
	for _, h := range handles {
		_, dropErr := t.Drop(h)
		err = multierr.Append(err, dropErr)
	}
	return err
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

package heap

import "github.com/wippyai/scopeheap/resource"

// EventType identifies a heap lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventDestroyed
	EventEscaped
	EventAdopted
	EventScopeOpened
	EventScopeClosed
	EventDropped
)

var eventNames = [...]string{
	EventCreated:     "created",
	EventRetained:    "retained",
	EventReleased:    "released",
	EventDestroyed:   "destroyed",
	EventEscaped:     "escaped",
	EventAdopted:     "adopted",
	EventScopeOpened: "scope_opened",
	EventScopeClosed: "scope_closed",
	EventDropped:     "dropped",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event describes one step in a cell's or scope's life.
// Cell events carry the count after the step.
type Event struct {
	Scope  string
	GoType string
	CellID uint64
	Count  int
	Type   EventType
}

// Observer receives heap events synchronously, in order.
type Observer interface {
	OnHeapEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnHeapEvent calls f(e).
func (f ObserverFunc) OnHeapEvent(e Event) { f(e) }

// escapeEvents turns escape table notifications into heap events. The
// table only holds cells, so every value carries its own event.
type escapeEvents struct {
	h *Heap
}

type eventSource interface {
	event(EventType) Event
}

func (o escapeEvents) OnResourceEvent(re resource.Event) {
	src, ok := re.Value.(eventSource)
	if !ok {
		return
	}
	h := o.h
	var e Event
	switch re.Type {
	case resource.EventParked:
		h.stats.Escaped++
		e = src.event(EventEscaped)
		e.Scope = re.Origin
	case resource.EventClaimed:
		h.stats.Adopted++
		e = src.event(EventAdopted)
		e.Scope = re.Receiver
	case resource.EventDropped:
		e = src.event(EventDropped)
		e.Scope = re.Origin
	default:
		return
	}
	h.emit(e)
}

type observerSlot struct {
	o  Observer
	id int
}

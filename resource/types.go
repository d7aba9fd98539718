package resource

// Handle is an opaque reference to a parked value.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	EventParked EventType = iota
	EventClaimed
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventParked:
		return "parked"
	case EventClaimed:
		return "claimed"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a table lifecycle event. Receiver is set for claims.
type Event struct {
	Value    Releaser
	Origin   string
	Receiver string
	Handle   Handle
	Type     EventType
}

// Observer receives notifications about table events.
type Observer interface {
	OnResourceEvent(Event)
}

// Releaser is implemented by values that can be parked.
type Releaser interface {
	Release() error
}

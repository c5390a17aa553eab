package resource

import "fmt"

// Handle is an opaque reference to a value in a Table.
// The low 20 bits select a slot; the high 12 bits carry its generation.
// Handle 0 is reserved and always invalid.
type Handle uint32

const (
	indexBits = 20
	indexMask = 1<<indexBits - 1
	genMask   = 1<<(32-indexBits) - 1

	// MaxHandles is the number of values a Table can hold at once.
	MaxHandles = indexMask
)

func makeHandle(index, gen uint32) Handle {
	return Handle(gen<<indexBits | (index + 1))
}

func (h Handle) index() (uint32, bool) {
	i := uint32(h) & indexMask
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h) >> indexBits
}

// Kind tags the value stored behind a handle.
type Kind uint8

const (
	KindLockfile Kind = iota + 1
	KindWorkspace
	KindResolver
)

func (k Kind) String() string {
	switch k {
	case KindLockfile:
		return "lockfile"
	case KindWorkspace:
		return "workspace"
	case KindResolver:
		return "resolver"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// EventType is the lifecycle step an Event reports.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup on Remove.
type Dropper interface {
	Drop()
}

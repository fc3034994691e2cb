package heap

import (
	"math"

	"github.com/wippyai/value-witness/layout"
)

// Handle is an index into the object table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Word returns the reference word that names h in memory.
func Word(h Handle) uint64 {
	return uint64(h) << 3
}

// HandleOf decodes a reference word. Words with low tag bits set or beyond
// the handle range are rejected.
func HandleOf(word uint64) (Handle, bool) {
	if word&7 != 0 || word>>3 > math.MaxUint32 {
		return 0, false
	}
	return Handle(word >> 3), word != 0
}

// Counts are the reference counts held on an object.
type Counts struct {
	Strong  uint32
	Unowned uint32
	Weak    uint32
}

func (c Counts) zero() bool {
	return c.Strong == 0 && c.Unowned == 0 && c.Weak == 0
}

// EventType identifies an object lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
	EventDeinit
	EventFreed
	EventFault
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventReleased:
		return "released"
	case EventDeinit:
		return "deinit"
	case EventFreed:
		return "freed"
	case EventFault:
		return "fault"
	}
	return "unknown"
}

// Event represents an object lifecycle event. Kind is set for releases and
// faults.
type Event struct {
	Value  any
	Word   uint64
	Handle Handle
	Counts Counts
	Kind   layout.RefKind
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnHeapEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnHeapEvent calls f(e).
func (f ObserverFunc) OnHeapEvent(e Event) { f(e) }

// Dropper is optionally implemented by object values that need cleanup
// when their last strong reference goes away.
type Dropper interface {
	Drop()
}

package heap

import (
	"sync"

	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/witness"
)

var _ witness.ObjectRuntime = (*Heap)(nil)

// Heap is an in-memory object table with reference counting.
type Heap struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	faults    int
	closed    bool
}

type entry struct {
	value  any
	counts Counts
	valid  bool
}

type countClass uint8

const (
	classStrong countClass = iota
	classUnowned
	classWeak
)

// New creates an empty heap.
func New() *Heap {
	return &Heap{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Alloc stores value with one strong reference and returns its handle.
// It returns 0 once the heap is closed.
func (h *Heap) Alloc(value any) Handle {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0
	}

	e := entry{value: value, counts: Counts{Strong: 1}, valid: true}
	var handle Handle
	if n := len(h.freeList); n > 0 {
		handle = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.entries[handle-1] = e
	} else {
		h.entries = append(h.entries, e)
		handle = Handle(len(h.entries))
	}
	h.mu.Unlock()

	h.notify(Event{Type: EventAllocated, Handle: handle, Word: Word(handle), Value: value, Counts: e.counts})
	return handle
}

func (h *Heap) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(h.entries) {
		return nil
	}
	e := &h.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

// Retain adds a strong reference. It fails once the object is deinitialized.
func (h *Heap) Retain(handle Handle) bool {
	return h.retain(handle, classStrong)
}

// RetainUnowned adds an unowned reference.
func (h *Heap) RetainUnowned(handle Handle) bool {
	return h.retain(handle, classUnowned)
}

// RetainWeak adds a weak reference.
func (h *Heap) RetainWeak(handle Handle) bool {
	return h.retain(handle, classWeak)
}

func (h *Heap) retain(handle Handle, class countClass) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.lookup(handle)
	if e == nil || e.counts.Strong == 0 {
		return false
	}
	switch class {
	case classStrong:
		e.counts.Strong++
	case classUnowned:
		e.counts.Unowned++
	case classWeak:
		e.counts.Weak++
	}
	return true
}

// Get returns the value of a live object.
func (h *Heap) Get(handle Handle) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.lookup(handle)
	if e == nil || e.counts.Strong == 0 {
		return nil, false
	}
	return e.value, true
}

// Counts returns the reference counts of an allocated slot.
func (h *Heap) Counts(handle Handle) (Counts, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.lookup(handle)
	if e == nil {
		return Counts{}, false
	}
	return e.counts, true
}

// Len returns the number of allocated slots, including deinitialized
// objects still held by unowned or weak references.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, e := range h.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Faults returns the number of releases that named no live count.
func (h *Heap) Faults() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.faults
}

// Close drops every live value and stops accepting allocations.
func (h *Heap) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var drop []any
	for i := range h.entries {
		if h.entries[i].valid && h.entries[i].counts.Strong > 0 {
			drop = append(drop, h.entries[i].value)
		}
	}
	h.entries = nil
	h.freeList = nil
	h.mu.Unlock()

	for _, v := range drop {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (h *Heap) Subscribe(o Observer) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.observers = append(h.observers, o)
}

// Unsubscribe removes an observer. o must be comparable, so an ObserverFunc
// cannot be unsubscribed.
func (h *Heap) Unsubscribe(o Observer) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	for i, obs := range h.observers {
		if obs == o {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return
		}
	}
}

func (h *Heap) notify(e Event) {
	h.obsMu.RLock()
	defer h.obsMu.RUnlock()
	for _, o := range h.observers {
		o.OnHeapEvent(e)
	}
}

// release drops one count of class from the object named by word. Events
// and the Dropper call happen after the table lock is released.
func (h *Heap) release(kind layout.RefKind, class countClass, word uint64) {
	var events []Event
	var dropped any

	h.mu.Lock()
	handle, ok := HandleOf(word)
	var e *entry
	if ok {
		e = h.lookup(handle)
	}
	var count *uint32
	if e != nil {
		switch class {
		case classStrong:
			count = &e.counts.Strong
		case classUnowned:
			count = &e.counts.Unowned
		case classWeak:
			count = &e.counts.Weak
		}
	}

	if count == nil || *count == 0 {
		h.faults++
		h.mu.Unlock()
		h.notify(Event{Type: EventFault, Handle: handle, Word: word, Kind: kind})
		return
	}

	*count--
	events = append(events, Event{Type: EventReleased, Handle: handle, Word: word, Kind: kind, Counts: e.counts})
	if class == classStrong && e.counts.Strong == 0 {
		dropped = e.value
		e.value = nil
		events = append(events, Event{Type: EventDeinit, Handle: handle, Word: word, Kind: kind, Value: dropped})
	}
	if e.counts.zero() {
		e.valid = false
		h.freeList = append(h.freeList, handle)
		events = append(events, Event{Type: EventFreed, Handle: handle, Word: word, Kind: kind})
	}
	h.mu.Unlock()

	if d, ok := dropped.(Dropper); ok {
		d.Drop()
	}
	for _, ev := range events {
		h.notify(ev)
	}
}

// Release drops a strong reference. Thick function contexts release
// through it as well.
func (h *Heap) Release(obj uint64) { h.release(layout.RefNativeStrong, classStrong, obj) }

// UnownedRelease drops an unowned reference.
func (h *Heap) UnownedRelease(obj uint64) { h.release(layout.RefNativeUnowned, classUnowned, obj) }

// WeakDestroy drops a weak reference.
func (h *Heap) WeakDestroy(ref uint64) { h.release(layout.RefNativeWeak, classWeak, ref) }

// UnknownUnownedDestroy drops an unowned reference of unknown ownership model.
func (h *Heap) UnknownUnownedDestroy(ref uint64) {
	h.release(layout.RefUnknownUnowned, classUnowned, ref)
}

// UnknownWeakDestroy drops a weak reference of unknown ownership model.
func (h *Heap) UnknownWeakDestroy(ref uint64) { h.release(layout.RefUnknownWeak, classWeak, ref) }

// BlockRelease drops a strong reference to a block.
func (h *Heap) BlockRelease(block uint64) { h.release(layout.RefBlock, classStrong, block) }

// BridgeRelease drops a strong reference to a bridged object.
func (h *Heap) BridgeRelease(obj uint64) { h.release(layout.RefBridge, classStrong, obj) }

// ForeignRelease drops a strong reference to a foreign object.
func (h *Heap) ForeignRelease(obj uint64) { h.release(layout.RefForeignObject, classStrong, obj) }

// ErrorRelease drops a strong reference to an error box.
func (h *Heap) ErrorRelease(err uint64) { h.release(layout.RefError, classStrong, err) }

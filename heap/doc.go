// Package heap provides a reference-counted object runtime for the
// destruction interpreter.
//
// Objects live in a handle table. The reference word stored in memory for
// an object is its handle shifted left by three, so words keep the low
// spare bits of an eight byte aligned pointer clear:
//
//	h := heap.New()
//	obj := h.Alloc("payload")
//	mem.WriteU64(addr, heap.Word(obj))
//
//	witness.NewDestroyer(mem, h).Destroy(addr, layout.MustParse("N"), nil)
//
// # Counts
//
// Each object carries strong, unowned and weak counts. Strong releases come
// from native, block, bridge, foreign, error and thick function context
// references. When the strong count reaches zero the value is dropped (see
// Dropper) and an EventDeinit is published. The slot is reused once every
// count is zero.
//
// Releasing a word that does not name a live count is a fault. Faults are
// counted and published as EventFault rather than panicking, since the
// interpreter cannot recover from them anyway.
package heap

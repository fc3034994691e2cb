package witness_test

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/value-witness/heap"
	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/memory"
	"github.com/wippyai/value-witness/witness"
)

// memoryWASM exports one page of memory as "memory".
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79,
	0x02, 0x00,
}

func TestDestroyReleasesHeapObjects(t *testing.T) {
	h := heap.New()
	a := h.Alloc("a")
	b := h.Alloc("b")
	h.Retain(b)

	// struct { x: u8; y: Optional<Object>; z: Object }
	prog := layout.MustParse("a(0:c, 3:e<1>(N), 3:N)")
	size, err := witness.ComputeSize(prog, nil)
	if err != nil {
		t.Fatal(err)
	}

	mem := memory.NewBytes(64)
	addr, err := mem.Alloc(size, 8)
	if err != nil {
		t.Fatal(err)
	}
	mem.WriteU64(addr+8, heap.Word(a))
	mem.WriteU64(addr+16, heap.Word(b))

	if err := witness.NewDestroyer(mem, h).Destroy(addr, prog, nil); err != nil {
		t.Fatal(err)
	}

	if _, ok := h.Get(a); ok {
		t.Error("a should be deinitialized")
	}
	if c, _ := h.Counts(b); c.Strong != 1 {
		t.Errorf("b strong count = %d, want 1", c.Strong)
	}
	if h.Faults() != 0 {
		t.Errorf("Faults() = %d", h.Faults())
	}
}

func TestDestroyWasmMemory(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, memoryWASM)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	mem := memory.Wrap(mod.ExportedMemory("memory"))

	h := heap.New()
	var kinds []layout.RefKind
	h.Subscribe(heap.ObserverFunc(func(e heap.Event) {
		if e.Type == heap.EventReleased {
			kinds = append(kinds, e.Kind)
		}
	}))

	obj := h.Alloc(nil)
	h.RetainWeak(obj)

	// Case 1 of a two-payload enum, tag in the pointer's spare low bit.
	prog := layout.MustParse("E<0>(N | W)")
	n, _, err := layout.Decode(prog, 0)
	if err != nil {
		t.Fatal(err)
	}
	e, err := witness.ReadMultiPayloadEnum(n.(layout.MultiPayloadEnum), nil)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, e.Size)
	copy(buf, []byte{byte(heap.Word(obj)), byte(heap.Word(obj) >> 8)})
	if err := witness.InjectPayloadTag(e, 1, buf); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write(1024, buf); err != nil {
		t.Fatal(err)
	}

	if err := witness.NewDestroyer(mem, h).Destroy(1024, prog, nil); err != nil {
		t.Fatal(err)
	}

	if len(kinds) != 1 || kinds[0] != layout.RefNativeWeak {
		t.Fatalf("released kinds = %v", kinds)
	}
	if c, _ := h.Counts(obj); c != (heap.Counts{Strong: 1}) {
		t.Errorf("Counts = %+v", c)
	}
}

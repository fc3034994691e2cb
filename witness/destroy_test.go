package witness

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/memory"
)

type call struct {
	op   string
	word uint64
}

// recorder is an ObjectRuntime that logs every release.
type recorder struct {
	calls []call
}

func (r *recorder) add(op string, w uint64)          { r.calls = append(r.calls, call{op, w}) }
func (r *recorder) Release(obj uint64)               { r.add("release", obj) }
func (r *recorder) UnownedRelease(obj uint64)        { r.add("unowned", obj) }
func (r *recorder) WeakDestroy(ref uint64)           { r.add("weak", ref) }
func (r *recorder) UnknownUnownedDestroy(ref uint64) { r.add("unknown-unowned", ref) }
func (r *recorder) UnknownWeakDestroy(ref uint64)    { r.add("unknown-weak", ref) }
func (r *recorder) BlockRelease(block uint64)        { r.add("block", block) }
func (r *recorder) BridgeRelease(obj uint64)         { r.add("bridge", obj) }
func (r *recorder) ForeignRelease(obj uint64)        { r.add("foreign", obj) }
func (r *recorder) ErrorRelease(err uint64)          { r.add("error", err) }

func (r *recorder) expect(t *testing.T, want ...call) {
	t.Helper()
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, r.calls[i], want[i])
		}
	}
}

// words writes 64-bit values at the given offsets of a fresh memory.
func words(t *testing.T, size uint32, at map[uint32]uint64) *memory.Bytes {
	t.Helper()
	mem := memory.NewBytes(size)
	for off, w := range at {
		if err := mem.WriteU64(off, w); err != nil {
			t.Fatal(err)
		}
	}
	return mem
}

func destroy(t *testing.T, mem *memory.Bytes, src string, md Metadata) *recorder {
	t.Helper()
	r := &recorder{}
	if err := NewDestroyer(mem, r).Destroy(0, layout.MustParse(src), md); err != nil {
		t.Fatalf("Destroy(%q): %v", src, err)
	}
	return r
}

func TestDestroy_ReferenceKinds(t *testing.T) {
	mem := words(t, 80, map[uint32]uint64{
		0: 0x10, 8: 0x20, 16: 0x30, 24: 0x40, 32: 0x50,
		40: 0x60, 48: 0x70, 56: 0x80, 64: 0x90, 72: 0xA0,
	})
	r := destroy(t, mem, "rNnWuwbBoL", nil)
	r.expect(t,
		call{"error", 0x10},
		call{"release", 0x20},
		call{"unowned", 0x30},
		call{"weak", 0x40},
		call{"unknown-unowned", 0x50},
		call{"unknown-weak", 0x60},
		call{"block", 0x70},
		call{"bridge", 0x80},
		call{"foreign", 0x90},
	)
}

func TestDestroy_ThickFunctionReleasesContext(t *testing.T) {
	mem := words(t, 16, map[uint32]uint64{0: 0xDEAD0, 8: 0x1000})
	r := destroy(t, mem, "f", nil)
	r.expect(t, call{"release", 0x1000})
}

func TestDestroy_SkipsNull(t *testing.T) {
	mem := memory.NewBytes(32)
	r := destroy(t, mem, "NWf", nil)
	r.expect(t)
}

func TestDestroy_ScalarsAdvance(t *testing.T) {
	mem := words(t, 15, map[uint32]uint64{7: 0x1000})
	r := destroy(t, mem, "cslN", nil)
	r.expect(t, call{"release", 0x1000})
}

func TestDestroy_GroupAlignment(t *testing.T) {
	// c at 0, s at 2, N at 8; the trailing N follows the group at 16.
	mem := words(t, 24, map[uint32]uint64{8: 0x1000, 16: 0x2000})
	if err := mem.WriteU8(0, 0xAA); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteU16(2, 0xBBBB); err != nil {
		t.Fatal(err)
	}
	r := destroy(t, mem, "a(0:c, 1:s, 3:N)N", nil)
	r.expect(t, call{"release", 0x1000}, call{"release", 0x2000})
}

func TestDestroy_GroupBaseAddress(t *testing.T) {
	mem := words(t, 32, map[uint32]uint64{16: 0x1000})
	r := &recorder{}
	if err := NewDestroyer(mem, r).Destroy(8, layout.MustParse("a(0:c, 3:N)"), nil); err != nil {
		t.Fatal(err)
	}
	r.expect(t, call{"release", 0x1000})
}

func TestDestroy_SinglePayloadExtraInhabitant(t *testing.T) {
	tests := []struct {
		name string
		word uint64
		want []call
	}{
		{"payload", 0x1000, []call{{"release", 0x1000}}},
		{"null payload", 0, nil},
		{"top byte set", 0xFF00000000000000, nil},
		{"low bits set", 0x1001, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 8, map[uint32]uint64{0: tt.word})
			r := destroy(t, mem, "e<1>(N)", nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_SinglePayloadExplicitTag(t *testing.T) {
	tests := []struct {
		name string
		tag  byte
		want []call
	}{
		{"payload", 0, []call{{"release", 0x1000}}},
		{"empty case", 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 9, map[uint32]uint64{0: 0x1000})
			if err := mem.WriteU8(8, tt.tag); err != nil {
				t.Fatal(err)
			}
			r := destroy(t, mem, "e<2147483648>(N)", nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_NestedSinglePayload(t *testing.T) {
	const src = "a(3:e<1>(e<1>(N)), 3:N)"

	tests := []struct {
		name  string
		inner uint64
		want  []call
	}{
		{"payload of payload", 0x1000, []call{{"release", 0x1000}, {"release", 0x2000}}},
		{"inner empty", 0x0100000000000000, []call{{"release", 0x2000}}},
		{"outer empty", 0xFF00000000000000, []call{{"release", 0x2000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 16, map[uint32]uint64{0: tt.inner, 8: 0x2000})
			r := destroy(t, mem, src, nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_MultiPayloadSpareBitTag(t *testing.T) {
	// Case 1 is tagged by bit 2 of the low byte, which must be stripped
	// before the payload is released.
	mem := words(t, 8, map[uint32]uint64{0: 0x2004})
	r := destroy(t, mem, "E<0>(N | W)", nil)
	r.expect(t, call{"weak", 0x2000})

	if w, _ := mem.ReadU64(0); w != 0x2000 {
		t.Errorf("payload word after destroy = 0x%x, want 0x2000", w)
	}
}

func TestDestroy_MultiPayloadCases(t *testing.T) {
	const src = "E<1>(N | u)"
	e := decodeMulti(t, src)

	tests := []struct {
		name string
		tag  uint32
		want []call
	}{
		{"first payload", 0, []call{{"release", 0x3000}}},
		{"second payload", 1, []call{{"unknown-unowned", 0x3000}}},
		{"empty case", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 8, map[uint32]uint64{0: 0x3000})
			buf := mem.Data()
			if err := InjectPayloadTag(e, tt.tag, buf); err != nil {
				t.Fatal(err)
			}
			r := destroy(t, mem, src, nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_NestedInMultiPayloadTag(t *testing.T) {
	inner := decodeMulti(t, "E<0>(N | W)")
	outer := decodeMulti(t, "E<0>(E<0>(N | W) | u)")

	tests := []struct {
		name     string
		innerTag uint32
		outerTag uint32
		outerSet bool
		want     []call
	}{
		{"inner first payload", 0, 0, false, []call{{"release", 0x3000}}},
		{"inner second payload", 1, 0, false, []call{{"weak", 0x3000}}},
		{"outer second payload", 0, 1, true, []call{{"unknown-unowned", 0x3000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 8, map[uint32]uint64{0: 0x3000})
			buf := mem.Data()
			if tt.outerSet {
				if err := InjectPayloadTag(outer, tt.outerTag, buf); err != nil {
					t.Fatal(err)
				}
			} else if err := InjectPayloadTag(inner, tt.innerTag, buf); err != nil {
				t.Fatal(err)
			}

			got, err := ExtractPayloadTag(outer, buf)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.outerTag {
				t.Errorf("outer tag = %d, want %d", got, tt.outerTag)
			}

			r := destroy(t, mem, "E<0>(E<0>(N | W) | u)", nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_MultiPayloadInSinglePayload(t *testing.T) {
	inner := decodeMulti(t, "E<0>(N | N)")

	t.Run("inner tag is not an empty case", func(t *testing.T) {
		mem := words(t, 8, map[uint32]uint64{0: 0x3000})
		if err := InjectPayloadTag(inner, 1, mem.Data()); err != nil {
			t.Fatal(err)
		}
		r := destroy(t, mem, "e<1>(E<0>(N | N))", nil)
		r.expect(t, call{"release", 0x3000})
	})

	t.Run("empty case", func(t *testing.T) {
		mem := words(t, 8, map[uint32]uint64{0: 1})
		r := destroy(t, mem, "e<1>(E<0>(N | N))", nil)
		r.expect(t)
	})
}

func TestDestroy_MultiPayloadExplicitTag(t *testing.T) {
	tests := []struct {
		name string
		tag  byte
		want []call
	}{
		{"reference case", 0, []call{{"foreign", 0x4000}}},
		{"scalar case", 1, nil},
		{"empty case", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := words(t, 9, map[uint32]uint64{0: 0x4000})
			if err := mem.WriteU8(8, tt.tag); err != nil {
				t.Fatal(err)
			}
			r := destroy(t, mem, "E<3>(o | L)", nil)
			r.expect(t, tt.want...)
		})
	}
}

func TestDestroy_Generic(t *testing.T) {
	args := GenericArgs{mustLayoutType(t, "N", nil), mustLayoutType(t, "a(0:c, 3:b)", nil)}

	// c at 0, A<0> aligned to 8, A<1> aligned to 8 with its block at +8.
	mem := words(t, 32, map[uint32]uint64{8: 0x1000, 24: 0x2000})
	r := destroy(t, mem, "a(0:c, ?:A<0>, ?:A<1>)", args)
	r.expect(t, call{"release", 0x1000}, call{"block", 0x2000})
}

func TestDestroy_GenericNestedMetadata(t *testing.T) {
	inner := GenericArgs{mustLayoutType(t, "B", nil)}
	args := GenericArgs{mustLayoutType(t, "cA<0>", inner)}

	mem := words(t, 16, map[uint32]uint64{1: 0x5000})
	r := destroy(t, mem, "A<0>", args)
	r.expect(t, call{"bridge", 0x5000})
}

func TestDestroy_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		md   Metadata
		size uint32
		kind errors.Kind
	}{
		{"generic out of range", "A<1>", GenericArgs{}, 8, errors.KindGenericIndex},
		{"reference past end", "cN", nil, 8, errors.KindOutOfBounds},
		{"enum past end", "e<1>(l)", nil, 4, errors.KindOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDestroyer(memory.NewBytes(tt.size), &recorder{}).
				Destroy(0, layout.MustParse(tt.src), tt.md)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected structured error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
}

func TestDestroy_NilCollaborators(t *testing.T) {
	prog := layout.MustParse("N")
	if err := NewDestroyer(nil, &recorder{}).Destroy(0, prog, nil); err == nil {
		t.Error("expected error for nil memory")
	}
	if err := NewDestroyer(memory.NewBytes(8), nil).Destroy(0, prog, nil); err == nil {
		t.Error("expected error for nil object runtime")
	}
}

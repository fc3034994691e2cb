package witness

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
)

func decodeSingle(t *testing.T, src string) *SinglePayloadEnum {
	t.Helper()
	n, _, err := layout.Decode(layout.MustParse(src), 0)
	if err != nil {
		t.Fatal(err)
	}
	e, err := ReadSinglePayloadEnum(n.(layout.SinglePayloadEnum), nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func decodeMulti(t *testing.T, src string) *MultiPayloadEnum {
	t.Helper()
	n, _, err := layout.Decode(layout.MustParse(src), 0)
	if err != nil {
		t.Fatal(err)
	}
	e, err := ReadMultiPayloadEnum(n.(layout.MultiPayloadEnum), nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestBitsToRepresent(t *testing.T) {
	tests := []struct {
		v    uint32
		bits uint32
		size uint32
	}{
		{0, 1, 1},
		{1, 1, 1},
		{2, 2, 1},
		{4, 3, 1},
		{255, 8, 1},
		{256, 9, 2},
		{0xFFFFFFFF, 32, 4},
	}
	for _, tt := range tests {
		if got := bitsToRepresent(tt.v); got != tt.bits {
			t.Errorf("bitsToRepresent(%d) = %d, want %d", tt.v, got, tt.bits)
		}
		if got := bytesToRepresent(tt.v); got != tt.size {
			t.Errorf("bytesToRepresent(%d) = %d, want %d", tt.v, got, tt.size)
		}
	}
}

func TestReadSinglePayloadEnum(t *testing.T) {
	tests := []struct {
		src     string
		xi      uint32
		inXI    uint32
		tagSize uint32
		size    uint32
	}{
		{"e<0>(N)", bitvec.MaxExtraInhabitants, 0, 0, 8},
		{"e<1>(N)", bitvec.MaxExtraInhabitants, 1, 0, 8},
		{"e<1>(l)", 0, 0, 1, 5},
		{"e<255>(c)", 0, 0, 1, 2},
		{"e<256>(c)", 0, 0, 2, 3},
		{"e<70000>(c)", 0, 0, 4, 5},
		{"e<2147483648>(N)", bitvec.MaxExtraInhabitants, bitvec.MaxExtraInhabitants, 1, 9},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e := decodeSingle(t, tt.src)
			if e.ExtraInhabitants != tt.xi {
				t.Errorf("ExtraInhabitants = %d, want %d", e.ExtraInhabitants, tt.xi)
			}
			if e.TagsInExtraInhabitants != tt.inXI {
				t.Errorf("TagsInExtraInhabitants = %d, want %d", e.TagsInExtraInhabitants, tt.inXI)
			}
			if e.TagSize != tt.tagSize {
				t.Errorf("TagSize = %d, want %d", e.TagSize, tt.tagSize)
			}
			if e.Size != tt.size {
				t.Errorf("Size = %d, want %d", e.Size, tt.size)
			}
			if e.SpareBits.Len() != int(e.Size)*8 {
				t.Errorf("spare bits cover %d bits of %d bytes", e.SpareBits.Len(), e.Size)
			}
		})
	}
}

func TestReadMultiPayloadEnum(t *testing.T) {
	tests := []struct {
		src     string
		common  int
		inXI    uint32
		spilled uint32
		tagSize uint32
		size    uint32
	}{
		{"E<3>(l | l)", 0, 0, 3, 1, 5},
		{"E<0>(N | N)", 11, 0, 0, 0, 8},
		{"E<2>(N | N)", 11, 2, 0, 0, 8},
		{"E<0>(N | l)", 8, 0, 0, 0, 8},
		{"E<0>(N)", 11, 0, 0, 0, 8},
		{"E<0>(l)", 0, 0, 0, 1, 5},
		{"E<2>()", 0, 0, 2, 1, 1},
		{"E<0>()", 0, 0, 0, 0, 0},
		{"E<4294967295>(N | N)", 11, bitvec.MaxExtraInhabitants, 0x80000000, 4, 12},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e := decodeMulti(t, tt.src)
			if got := e.CommonSpareBits.Count(); got != tt.common {
				t.Errorf("common spare bits = %d, want %d", got, tt.common)
			}
			if e.TagsInExtraInhabitants != tt.inXI {
				t.Errorf("TagsInExtraInhabitants = %d, want %d", e.TagsInExtraInhabitants, tt.inXI)
			}
			if e.SpilledTags != tt.spilled {
				t.Errorf("SpilledTags = %d, want %d", e.SpilledTags, tt.spilled)
			}
			if e.TagSize != tt.tagSize {
				t.Errorf("TagSize = %d, want %d", e.TagSize, tt.tagSize)
			}
			if e.Size != tt.size {
				t.Errorf("Size = %d, want %d", e.Size, tt.size)
			}
		})
	}
}

func TestReadMultiPayloadEnum_PayloadSizes(t *testing.T) {
	e := decodeMulti(t, "E<0>(c | a(0:c, 2:l) | L)")
	want := []uint32{1, 8, 8}
	for i, s := range want {
		if e.PayloadSizes[i] != s {
			t.Errorf("PayloadSizes[%d] = %d, want %d", i, e.PayloadSizes[i], s)
		}
	}
	if e.PayloadSize != 8 {
		t.Errorf("PayloadSize = %d, want 8", e.PayloadSize)
	}
}

func TestExtractPayloadTag(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data []byte
		want uint32
	}{
		{"explicit tag payload", "E<3>(l | l)", []byte{0xAA, 0xBB, 0xCC, 0xDD, 1}, 1},
		{"explicit tag empty", "E<3>(l | l)", []byte{0, 0, 0, 0, 4}, 4},
		{"spare bit clear", "E<0>(N | N)", []byte{0, 0x10, 0, 0, 0, 0, 0, 0}, 0},
		{"spare bit set", "E<0>(N | N)", []byte{0x04, 0x10, 0, 0, 0, 0, 0, 0}, 1},
		{"two spare bits", "E<1>(N | N)", []byte{0x04, 0, 0, 0, 0, 0, 0, 0}, 2},
		{"top byte tag", "E<0>(N | l)", []byte{0, 0, 0, 0, 0, 0, 0, 0x80}, 1},
		// Spare bits give the low bits, the explicit field the rest.
		{"combined", "E<4294967295>(N | N)", []byte{0x06, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0}, 11},
		{"combined zero spare", "E<4294967295>(N | N)", []byte{0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeMulti(t, tt.src)
			got, err := ExtractPayloadTag(e, tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExtractPayloadTag = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractPayloadTag_Truncated(t *testing.T) {
	e := decodeMulti(t, "E<3>(l | l)")
	if _, err := ExtractPayloadTag(e, []byte{0, 0, 0, 0}); err == nil {
		t.Error("expected error for short data")
	}
}

func TestInjectPayloadTag(t *testing.T) {
	tests := []struct {
		src  string
		tags []uint32
	}{
		{"E<3>(l | l)", []uint32{0, 1, 2, 3, 4}},
		{"E<0>(N | N)", []uint32{0, 1}},
		{"E<1>(N | N)", []uint32{0, 1, 2}},
		{"E<0>(N | l)", []uint32{0, 1}},
		{"E<4294967295>(N | N)", []uint32{0, 1, 2, 3, 4, 5, 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e := decodeMulti(t, tt.src)
			for _, tag := range tt.tags {
				data := make([]byte, e.Size)
				data[1] = 0x10 // payload bits outside the mask survive
				if err := InjectPayloadTag(e, tag, data); err != nil {
					t.Fatalf("InjectPayloadTag(%d): %v", tag, err)
				}
				if data[1]&0x10 == 0 {
					t.Errorf("tag %d clobbered payload bits", tag)
				}
				got, err := ExtractPayloadTag(e, data)
				if err != nil {
					t.Fatal(err)
				}
				if got != tag {
					t.Errorf("tag %d decoded as %d (% x)", tag, got, data)
				}
			}
		})
	}
}

func TestInjectPayloadTag_Overflow(t *testing.T) {
	e := decodeMulti(t, "E<0>(N | N)")
	data := make([]byte, e.Size)
	if err := InjectPayloadTag(e, 2, data); err == nil {
		t.Error("expected error for tag wider than the spare bits")
	}
}

func TestInjectPayloadTag_GatheredRange(t *testing.T) {
	// Two spare bits in the top byte carry the tag; five empty cases fit
	// into extra inhabitants, so there is no explicit tag field.
	e := decodeMulti(t, "E<5>(N | W | l)")
	if e.TagSize != 0 {
		t.Fatalf("TagSize = %d, want 0", e.TagSize)
	}

	for tag := uint32(0); tag < 4; tag++ {
		data := make([]byte, e.Size)
		if err := InjectPayloadTag(e, tag, data); err != nil {
			t.Fatalf("InjectPayloadTag(%d): %v", tag, err)
		}
		got, err := ExtractPayloadTag(e, data)
		if err != nil {
			t.Fatal(err)
		}
		if got != tag {
			t.Errorf("ExtractPayloadTag after inject %d = %d", tag, got)
		}
	}

	err := InjectPayloadTag(e, 4, make([]byte, e.Size))
	var ve *errors.Error
	if !stderrors.As(err, &ve) || ve.Kind != errors.KindOverflow {
		t.Errorf("InjectPayloadTag(4) error = %v, want overflow", err)
	}
}

func TestIndexFromValue(t *testing.T) {
	mask := bitvec.FromBytes(0x0F)
	payload := bitvec.FromBytes(0xF5)

	if got := IndexFromValue(mask, payload, bitvec.Vector{}); got != 5 {
		t.Errorf("IndexFromValue without tag bits = %d, want 5", got)
	}
	if got := IndexFromValue(mask, payload, bitvec.FromBytes(0x01)); got != 21 {
		t.Errorf("IndexFromValue with tag bits = %d, want 21", got)
	}
	if got := IndexFromValue(bitvec.New(8), payload, bitvec.FromBytes(0x03)); got != 3 {
		t.Errorf("IndexFromValue with no spare bits = %d, want 3", got)
	}
}

package witness

import (
	"math"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
)

// casesPerTag is the number of distinct values the non-spare payload bits
// can take, capped at MaxUint32.
func (e *MultiPayloadEnum) casesPerTag() uint32 {
	nonSpare := e.CommonSpareBits.Len() - e.CommonSpareBits.Count()
	if nonSpare >= 32 {
		return math.MaxUint32
	}
	return 1 << nonSpare
}

// tagBitWidth is the number of payload spare bits that carry the tag.
func (e *MultiPayloadEnum) tagBitWidth() int {
	numTags := uint64(e.NumPayloads())
	if e.NumEmpty != 0 {
		numTags += uint64(e.NumEmpty/e.casesPerTag()) + 1
	}
	if numTags == 0 {
		return 0
	}
	required := bitsToRepresent(uint32(min(numTags-1, math.MaxUint32)))
	return min(int(required), e.CommonSpareBits.Count())
}

// ExtractPayloadTag decodes the discriminant of a live multi-payload enum
// instance. data holds at least e.Size bytes of the instance. A result
// below e.NumPayloads() selects that payload case; anything else is an
// empty case.
func ExtractPayloadTag(e *MultiPayloadEnum, data []byte) (uint32, error) {
	if uint64(len(data)) < uint64(e.Size) {
		return 0, errors.Truncated(errors.PhaseDestroy, 0, int(e.Size), len(data))
	}

	w := e.tagBitWidth()
	var gathered uint32
	if w > 0 {
		payload := bitvec.FromBytes(data[:e.PayloadSize]...)
		gathered = payload.GatherN(e.CommonSpareBits, w)
	}
	if e.TagSize == 0 {
		return gathered, nil
	}

	extra := readTagField(data[e.PayloadSize : e.PayloadSize+e.TagSize])
	if gathered == 0 {
		return extra, nil
	}
	return extra<<w | gathered, nil
}

// InjectPayloadTag stores tag into the spare bits and explicit tag field of
// data so that ExtractPayloadTag returns it. Payload bits outside the spare
// mask are left untouched.
//
// Only tags ExtractPayloadTag can return are accepted. Without an explicit
// tag field that is 0 to 1<<w-1 for the w gathered spare bits; empty cases
// told apart only by non-spare payload bits cannot be stored and report an
// overflow error.
func InjectPayloadTag(e *MultiPayloadEnum, tag uint32, data []byte) error {
	if uint64(len(data)) < uint64(e.Size) {
		return errors.Truncated(errors.PhaseDestroy, 0, int(e.Size), len(data))
	}

	w := e.tagBitWidth()
	low := tag
	extra := uint32(0)
	if w < 32 {
		low = tag & (1<<w - 1)
		extra = tag >> w
	}
	if low == 0 {
		extra = tag
	}
	if e.TagSize == 0 && extra != 0 {
		return errors.Overflow(errors.PhaseDestroy, tag, "payload spare bits")
	}
	if e.TagSize > 0 && e.TagSize < 4 && extra >= 1<<(8*e.TagSize) {
		return errors.Overflow(errors.PhaseDestroy, tag, "enum tag field")
	}

	if w > 0 {
		scatter(e.CommonSpareBits, w, low, data[:e.PayloadSize])
	}
	if e.TagSize > 0 {
		writeTagField(data[e.PayloadSize:e.PayloadSize+e.TagSize], extra)
	}
	return nil
}

// IndexFromValue combines the bits of payload selected by mask with the
// explicit tag bits placed above them.
func IndexFromValue(mask, payload, extraTagBits bitvec.Vector) uint32 {
	n := mask.Count()
	var tag uint32
	if n > 0 {
		tag = payload.Gather(mask)
	}
	if extraTagBits.Len() > 0 {
		tag = extraTagBits.ToU32()<<n | tag
	}
	return tag
}

// scatter is the inverse of GatherN: the first w bits selected by mask
// receive value, most significant bit first.
func scatter(mask bitvec.Vector, w int, value uint32, data []byte) {
	bits := bitvec.FromBytes(data...)
	k := 0
	for i := 0; i < mask.Len() && k < w; i++ {
		if !mask.Bit(i) {
			continue
		}
		bits.Set(i, value>>(w-1-k)&1 == 1)
		k++
	}
	copy(data, bits.Bytes())
}

// readTagField reads a little-endian explicit tag of up to four bytes.
func readTagField(b []byte) uint32 {
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

func writeTagField(b []byte, v uint32) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

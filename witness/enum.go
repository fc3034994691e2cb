package witness

import (
	"strconv"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
)

// SinglePayloadEnum is the derived layout of an enum with one payload case.
// It is recomputed from the layout program whenever it is needed.
type SinglePayloadEnum struct {
	Payload                []byte
	PayloadSpareBits       bitvec.Vector
	SpareBits              bitvec.Vector
	NumEmpty               uint32
	PayloadSize            uint32
	ExtraInhabitants       uint32
	TagsInExtraInhabitants uint32
	TagSize                uint32
	Size                   uint32
}

// MultiPayloadEnum is the derived layout of an enum with several payload cases.
type MultiPayloadEnum struct {
	Payloads     [][]byte
	PayloadSizes []uint32
	// CommonSpareBits are the payload bits every case leaves unused.
	CommonSpareBits bitvec.Vector
	// TagSpareBits are the unused high bits of the explicit tag field.
	TagSpareBits bitvec.Vector
	// SpareBits are the bits no instance of the enum sets: CommonSpareBits
	// minus the tag bits, followed by TagSpareBits.
	SpareBits              bitvec.Vector
	NumEmpty               uint32
	PayloadSize            uint32
	TagsInExtraInhabitants uint32
	SpilledTags            uint32
	TagSize                uint32
	Size                   uint32
}

// NumPayloads returns the number of payload cases.
func (e *MultiPayloadEnum) NumPayloads() uint32 {
	return uint32(len(e.Payloads))
}

// ReadSinglePayloadEnum derives the layout of a decoded single-payload enum.
func ReadSinglePayloadEnum(n layout.SinglePayloadEnum, md Metadata) (*SinglePayloadEnum, error) {
	return newCalculator(md).singlePayload(n)
}

// ReadMultiPayloadEnum derives the layout of a decoded multi-payload enum.
func ReadMultiPayloadEnum(n layout.MultiPayloadEnum, md Metadata) (*MultiPayloadEnum, error) {
	return newCalculator(md).multiPayload(n)
}

// bitsToRepresent returns the number of bits needed to write v, at least one.
func bitsToRepresent(v uint32) uint32 {
	r := uint32(1)
	for v >>= 1; v != 0; v >>= 1 {
		r++
	}
	return r
}

func bytesToRepresent(v uint32) uint32 {
	return (bitsToRepresent(v) + 7) / 8
}

// singlePayloadTagSize sizes the explicit tag for the empty cases that did
// not fit into extra inhabitants.
func singlePayloadTagSize(spilled uint32) uint32 {
	switch {
	case spilled == 0:
		return 0
	case spilled < 1<<8:
		return 1
	case spilled < 1<<16:
		return 2
	default:
		return 4
	}
}

func (c *calculator) singlePayload(n layout.SinglePayloadEnum) (*SinglePayloadEnum, error) {
	size, err := c.size(n.Payload)
	if err != nil {
		return nil, errors.At(err, "payload")
	}
	mask, err := c.spareBits(n.Payload)
	if err != nil {
		return nil, errors.At(err, "payload")
	}

	xi := mask.CountExtraInhabitants()
	inXI := min(xi, n.NumEmpty)
	tagSize := singlePayloadTagSize(n.NumEmpty - inXI)

	total, err := addSize(size, tagSize)
	if err != nil {
		return nil, err
	}

	spare := mask.Clone()
	spare.AppendZeros(int(tagSize) * 8)

	return &SinglePayloadEnum{
		NumEmpty:               n.NumEmpty,
		Payload:                n.Payload,
		PayloadSize:            size,
		PayloadSpareBits:       mask,
		ExtraInhabitants:       xi,
		TagsInExtraInhabitants: inXI,
		TagSize:                tagSize,
		SpareBits:              spare,
		Size:                   total,
	}, nil
}

func (c *calculator) multiPayload(n layout.MultiPayloadEnum) (*MultiPayloadEnum, error) {
	e := &MultiPayloadEnum{
		NumEmpty:     n.NumEmpty,
		Payloads:     n.Payloads,
		PayloadSizes: make([]uint32, len(n.Payloads)),
	}

	for i, p := range n.Payloads {
		s, err := c.size(p)
		if err != nil {
			return nil, errors.At(err, "payload "+strconv.Itoa(i))
		}
		e.PayloadSizes[i] = s
		e.PayloadSize = max(e.PayloadSize, s)
	}

	// A bit stays spare only if every case leaves it unused. Bytes past the
	// end of a shorter payload are unused by that case.
	width := int(e.PayloadSize) * 8
	common := bitvec.Ones(width)
	for i, p := range n.Payloads {
		mask, err := c.spareBits(p)
		if err != nil {
			return nil, errors.At(err, "payload "+strconv.Itoa(i))
		}
		mask.OnesExtendTo(width)
		common.AndAssign(mask)
	}
	if len(n.Payloads) == 0 {
		common = bitvec.Vector{}
	}
	e.CommonSpareBits = common

	e.TagsInExtraInhabitants = min(common.CountExtraInhabitants(), n.NumEmpty)
	e.SpilledTags = n.NumEmpty - e.TagsInExtraInhabitants

	numPayloads := e.NumPayloads()
	spareCount := uint32(common.Count())
	needsTag := e.SpilledTags > 0 ||
		(numPayloads > 1 && spareCount < bitsToRepresent(numPayloads-1)) ||
		(numPayloads == 1 && spareCount == 0)

	if needsTag {
		values := uint64(numPayloads) + uint64(e.SpilledTags)
		maxValue := uint32(0)
		if values > 0 {
			maxValue = uint32(min(values-1, uint64(^uint32(0))))
		}
		e.TagSize = bytesToRepresent(maxValue)
		e.TagSpareBits = tagFieldSpareBits(e.TagSize, bitsToRepresent(maxValue))
	}

	var err error
	if e.Size, err = addSize(e.PayloadSize, e.TagSize); err != nil {
		return nil, err
	}
	e.SpareBits = e.freePayloadBits().Concat(e.TagSpareBits)
	return e, nil
}

// freePayloadBits is CommonSpareBits without the bits that carry the
// payload tag. Those bits are set by valid instances, so an enclosing enum
// must not use them.
func (e *MultiPayloadEnum) freePayloadBits() bitvec.Vector {
	free := e.CommonSpareBits.Clone()
	w := e.tagBitWidth()
	for i := 0; i < free.Len() && w > 0; i++ {
		if free.Bit(i) {
			free.Set(i, false)
			w--
		}
	}
	return free
}

// tagFieldSpareBits marks the bits of a little-endian tag field at or above
// usedBits, in memory order.
func tagFieldSpareBits(tagSize, usedBits uint32) bitvec.Vector {
	v := bitvec.New(int(tagSize) * 8)
	for b := int(usedBits); b < int(tagSize)*8; b++ {
		v.Set(b/8*8+7-b%8, true)
	}
	return v
}

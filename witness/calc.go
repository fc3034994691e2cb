package witness

import (
	"math"
	"strconv"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
)

// pointerSpareBits is the mask of a 64-bit object reference in memory order:
// objects are 8 byte aligned and only the low 56 bits carry an address.
var pointerSpareBits = [8]byte{0x07, 0, 0, 0, 0, 0, 0, 0xff}

// PointerSpareBits returns the spare-bit mask of one reference word.
func PointerSpareBits() bitvec.Vector {
	return bitvec.FromBytes(pointerSpareBits[:]...)
}

// ComputeSize returns the size in bytes of the value described by prog.
func ComputeSize(prog []byte, md Metadata) (uint32, error) {
	return newCalculator(md).size(prog)
}

// ComputeAlignment returns the alignment in bytes of the value described by prog.
func ComputeAlignment(prog []byte, md Metadata) (uint32, error) {
	return newCalculator(md).alignment(prog)
}

// ComputeSpareBits returns the spare-bit mask of the value described by prog.
// The mask has exactly one bit per bit of the value's representation.
func ComputeSpareBits(prog []byte, md Metadata) (bitvec.Vector, error) {
	c := newCalculator(md)
	bits, err := c.spareBits(prog)
	if err != nil {
		return bitvec.Vector{}, err
	}
	size, err := c.size(prog)
	if err != nil {
		return bitvec.Vector{}, err
	}
	if uint64(bits.Len()) != uint64(size)*8 {
		return bitvec.Vector{}, errors.New(errors.PhaseLayout, errors.KindMalformed).
			Detail("spare bits cover %d bits of a %d byte value", bits.Len(), size).
			Build()
	}
	return bits, nil
}

type progKey struct {
	first *byte
	n     int
}

func keyOf(prog []byte) progKey {
	if len(prog) == 0 {
		return progKey{}
	}
	return progKey{first: &prog[0], n: len(prog)}
}

// calculator evaluates layout programs for the duration of one call.
// Results are memoized by program slice so nested enums are not
// re-derived at every level.
type calculator struct {
	md     Metadata
	sizes  map[progKey]uint32
	aligns map[progKey]uint32
	spare  map[progKey]bitvec.Vector
}

func newCalculator(md Metadata) *calculator {
	return &calculator{
		md:     md,
		sizes:  make(map[progKey]uint32),
		aligns: make(map[progKey]uint32),
		spare:  make(map[progKey]bitvec.Vector),
	}
}

func addSize(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, errors.Overflow(errors.PhaseLayout, uint64(a)+uint64(b), "uint32")
	}
	return a + b, nil
}

func alignTo(offset, align uint32) (uint32, error) {
	if align <= 1 {
		return offset, nil
	}
	mask := align - 1
	if offset > math.MaxUint32-mask {
		return 0, errors.Overflow(errors.PhaseLayout, uint64(offset)+uint64(mask), "uint32")
	}
	return (offset + mask) &^ mask, nil
}

func (c *calculator) size(prog []byte) (uint32, error) {
	k := keyOf(prog)
	if s, ok := c.sizes[k]; ok {
		return s, nil
	}

	var total uint32
	r := layout.NewReader(prog)
	for !r.Done() {
		node, err := r.Next()
		if err != nil {
			return 0, err
		}
		s, err := c.nodeSize(node)
		if err != nil {
			return 0, err
		}
		if total, err = addSize(total, s); err != nil {
			return 0, err
		}
	}

	c.sizes[k] = total
	return total, nil
}

func (c *calculator) nodeSize(node layout.Node) (uint32, error) {
	switch n := node.(type) {
	case layout.Scalar:
		return uint32(n.Width), nil
	case layout.Reference:
		return n.Kind.Size(), nil
	case layout.Group:
		fields, err := c.placeFields(n)
		if err != nil {
			return 0, err
		}
		return groupSize(fields), nil
	case layout.SinglePayloadEnum:
		e, err := c.singlePayload(n)
		if err != nil {
			return 0, err
		}
		return e.Size, nil
	case layout.MultiPayloadEnum:
		e, err := c.multiPayload(n)
		if err != nil {
			return 0, err
		}
		return e.Size, nil
	case layout.Generic:
		w, err := resolve(c.md, n.Index)
		if err != nil {
			return 0, err
		}
		return w.Size(), nil
	}
	return 0, errors.UnknownTag(errors.PhaseLayout, 0, node.Tag())
}

func (c *calculator) alignment(prog []byte) (uint32, error) {
	k := keyOf(prog)
	if a, ok := c.aligns[k]; ok {
		return a, nil
	}

	align := uint32(1)
	r := layout.NewReader(prog)
	for !r.Done() {
		node, err := r.Next()
		if err != nil {
			return 0, err
		}
		a, err := c.nodeAlignment(node)
		if err != nil {
			return 0, err
		}
		align = max(align, a)
	}

	c.aligns[k] = align
	return align, nil
}

func (c *calculator) nodeAlignment(node layout.Node) (uint32, error) {
	switch n := node.(type) {
	case layout.Scalar:
		return uint32(n.Width), nil
	case layout.Reference:
		return 8, nil
	case layout.Group:
		align := uint32(1)
		for i, f := range n.Fields {
			a, err := c.fieldAlignment(f)
			if err != nil {
				return 0, errors.At(err, "field "+strconv.Itoa(i))
			}
			align = max(align, a)
		}
		return align, nil
	case layout.SinglePayloadEnum:
		a, err := c.alignment(n.Payload)
		return a, errors.At(err, "payload")
	case layout.MultiPayloadEnum:
		align := uint32(1)
		for i, p := range n.Payloads {
			a, err := c.alignment(p)
			if err != nil {
				return 0, errors.At(err, "payload "+strconv.Itoa(i))
			}
			align = max(align, a)
		}
		return align, nil
	case layout.Generic:
		w, err := resolve(c.md, n.Index)
		if err != nil {
			return 0, err
		}
		return max(w.Alignment(), 1), nil
	}
	return 0, errors.UnknownTag(errors.PhaseLayout, 0, node.Tag())
}

func (c *calculator) fieldAlignment(f layout.Field) (uint32, error) {
	if f.Align != layout.AlignUnknown {
		return f.Align.Bytes(), nil
	}
	return c.alignment(f.Layout)
}

// placement is a group field resolved to its offset within the group.
type placement struct {
	field  layout.Field
	offset uint32
	size   uint32
}

func groupSize(fields []placement) uint32 {
	if len(fields) == 0 {
		return 0
	}
	last := fields[len(fields)-1]
	return last.offset + last.size
}

// placeFields lays out a group's fields relative to the group's start.
// The group size is the end of its last field; there is no tail padding.
func (c *calculator) placeFields(g layout.Group) ([]placement, error) {
	out := make([]placement, 0, len(g.Fields))
	var offset uint32
	for i, f := range g.Fields {
		align, err := c.fieldAlignment(f)
		if err != nil {
			return nil, errors.At(err, "field "+strconv.Itoa(i))
		}
		if offset, err = alignTo(offset, align); err != nil {
			return nil, err
		}
		size, err := c.size(f.Layout)
		if err != nil {
			return nil, errors.At(err, "field "+strconv.Itoa(i))
		}
		out = append(out, placement{field: f, offset: offset, size: size})
		if offset, err = addSize(offset, size); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *calculator) spareBits(prog []byte) (bitvec.Vector, error) {
	k := keyOf(prog)
	if v, ok := c.spare[k]; ok {
		return v.Clone(), nil
	}

	var bits bitvec.Vector
	r := layout.NewReader(prog)
	for !r.Done() {
		node, err := r.Next()
		if err != nil {
			return bitvec.Vector{}, err
		}
		v, err := c.nodeSpareBits(node)
		if err != nil {
			return bitvec.Vector{}, err
		}
		bits.Append(v)
	}

	c.spare[k] = bits.Clone()
	return bits, nil
}

func (c *calculator) nodeSpareBits(node layout.Node) (bitvec.Vector, error) {
	switch n := node.(type) {
	case layout.Scalar:
		return bitvec.New(int(n.Width) * 8), nil
	case layout.Reference:
		if n.Kind == layout.RefThickFunction {
			// The function word has no spare bits, the context word is a reference.
			return bitvec.New(64).Concat(PointerSpareBits()), nil
		}
		return PointerSpareBits(), nil
	case layout.Group:
		return c.groupSpareBits(n)
	case layout.SinglePayloadEnum:
		e, err := c.singlePayload(n)
		if err != nil {
			return bitvec.Vector{}, err
		}
		return e.SpareBits.Clone(), nil
	case layout.MultiPayloadEnum:
		e, err := c.multiPayload(n)
		if err != nil {
			return bitvec.Vector{}, err
		}
		return e.SpareBits.Clone(), nil
	case layout.Generic:
		w, err := resolve(c.md, n.Index)
		if err != nil {
			return bitvec.Vector{}, err
		}
		return w.SpareBits(), nil
	}
	return bitvec.Vector{}, errors.UnknownTag(errors.PhaseLayout, 0, node.Tag())
}

// groupSpareBits keeps only the mask of the field with the most spare bits,
// the later field winning a tie. Every other field and all padding
// contribute zero bits.
func (c *calculator) groupSpareBits(g layout.Group) (bitvec.Vector, error) {
	fields, err := c.placeFields(g)
	if err != nil {
		return bitvec.Vector{}, err
	}

	var best bitvec.Vector
	var bestOffset uint32
	for i, p := range fields {
		mask, err := c.spareBits(p.field.Layout)
		if err != nil {
			return bitvec.Vector{}, errors.At(err, "field "+strconv.Itoa(i))
		}
		if mask.Count() >= best.Count() {
			best = mask
			bestOffset = p.offset
		}
	}

	out := bitvec.New(int(bestOffset) * 8)
	out.Append(best)
	out.ZeroExtendTo(int(groupSize(fields)) * 8)
	return out, nil
}

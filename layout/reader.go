package layout

import (
	"encoding/binary"

	"fortio.org/safecast"

	"github.com/wippyai/value-witness/errors"
)

// Reader decodes the top-level nodes of a layout program.
type Reader struct {
	prog []byte
	off  int
}

// NewReader returns a reader positioned at the start of prog.
func NewReader(prog []byte) *Reader {
	return &Reader{prog: prog}
}

// Done reports whether the whole program has been consumed.
func (r *Reader) Done() bool {
	return r.off >= len(r.prog)
}

// Offset returns the position of the next node.
func (r *Reader) Offset() int {
	return r.off
}

// Next decodes the node at the current position and advances past it.
func (r *Reader) Next() (Node, error) {
	n, next, err := Decode(r.prog, r.off)
	if err != nil {
		return nil, err
	}
	r.off = next
	return n, nil
}

// DecodeAll decodes every top-level node of prog.
func DecodeAll(prog []byte) ([]Node, error) {
	var nodes []Node
	r := NewReader(prog)
	for !r.Done() {
		n, err := r.Next()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Decode decodes the node starting at off and returns the offset just past it.
// Nested fields and payloads are returned as byte ranges of prog.
func Decode(prog []byte, off int) (Node, int, error) {
	c := cursor{prog: prog, off: off}
	tag, err := c.u8()
	if err != nil {
		return nil, off, err
	}

	if w, ok := ScalarWidthOf(tag); ok {
		return Scalar{Width: w}, c.off, nil
	}
	if k, ok := RefKindOf(tag); ok {
		return Reference{Kind: k}, c.off, nil
	}

	var n Node
	switch tag {
	case TagAlignedGroup:
		n, err = c.group()
	case TagSinglePayloadEnum:
		n, err = c.singlePayload()
	case TagMultiPayloadEnum:
		n, err = c.multiPayload()
	case TagGeneric:
		var idx uint32
		idx, err = c.u32()
		n = Generic{Index: idx}
	default:
		return nil, off, errors.UnknownTag(errors.PhaseDecode, off, tag)
	}
	if err != nil {
		return nil, off, err
	}
	return n, c.off, nil
}

type cursor struct {
	prog []byte
	off  int
}

func (c *cursor) need(n int) error {
	if rem := len(c.prog) - c.off; rem < n {
		return errors.Truncated(errors.PhaseDecode, c.off, n, rem)
	}
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.prog[c.off]
	c.off++
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.prog[c.off:])
	c.off += 4
	return v, nil
}

// bytes slices off a length-prefixed nested program.
func (c *cursor) bytes(length uint32) ([]byte, error) {
	n, err := safecast.Conv[int](length)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Offset(c.off).
			Value(length).
			Cause(err).
			Detail("nested length %d does not fit in int", length).
			Build()
	}
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.prog[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// capHint bounds preallocation by what the remaining bytes could hold.
func (c *cursor) capHint(count uint32, minBytesEach int) int {
	most := (len(c.prog) - c.off) / minBytesEach
	if n, err := safecast.Conv[int](count); err == nil && n < most {
		return n
	}
	return most
}

func (c *cursor) group() (Node, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, c.capHint(count, 5))
	for i := uint32(0); i < count; i++ {
		alignOff := c.off
		ab, err := c.u8()
		if err != nil {
			return nil, err
		}
		align, ok := parseAlign(ab)
		if !ok {
			return nil, errors.InvalidAlignment(errors.PhaseDecode, alignOff, ab)
		}
		length, err := c.u32()
		if err != nil {
			return nil, err
		}
		body, err := c.bytes(length)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Align: align, Layout: body})
	}
	return Group{Fields: fields}, nil
}

func (c *cursor) singlePayload() (Node, error) {
	numEmpty, err := c.u32()
	if err != nil {
		return nil, err
	}
	length, err := c.u32()
	if err != nil {
		return nil, err
	}
	payload, err := c.bytes(length)
	if err != nil {
		return nil, err
	}
	return SinglePayloadEnum{NumEmpty: numEmpty, Payload: payload}, nil
}

func (c *cursor) multiPayload() (Node, error) {
	numEmpty, err := c.u32()
	if err != nil {
		return nil, err
	}
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	lengths := make([]uint32, 0, c.capHint(count, 4))
	for i := uint32(0); i < count; i++ {
		l, err := c.u32()
		if err != nil {
			return nil, err
		}
		lengths = append(lengths, l)
	}
	payloads := make([][]byte, 0, len(lengths))
	for _, l := range lengths {
		p, err := c.bytes(l)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return MultiPayloadEnum{NumEmpty: numEmpty, Payloads: payloads}, nil
}

func parseAlign(b byte) (Align, bool) {
	if b == AlignUnknownByte {
		return AlignUnknown, true
	}
	if b >= '0' && b <= '7' {
		return Align(b - '0'), true
	}
	return 0, false
}

func alignByte(a Align) byte {
	if a == AlignUnknown {
		return AlignUnknownByte
	}
	return '0' + byte(a)
}

package layout

import (
	"encoding/binary"

	"fortio.org/safecast"

	"github.com/wippyai/value-witness/errors"
)

// Builder assembles a layout program.
type Builder struct {
	buf []byte
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) tag(t byte) *Builder {
	b.buf = append(b.buf, t)
	return b
}

func (b *Builder) u32(v uint32) {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
}

func (b *Builder) length(p []byte) {
	n, err := safecast.Conv[uint32](len(p))
	if err != nil && b.err == nil {
		b.err = errors.Overflow(errors.PhaseDecode, len(p), "uint32")
	}
	b.u32(n)
}

// I8 appends a 1 byte integer.
func (b *Builder) I8() *Builder { return b.tag(TagI8) }

// I16 appends a 2 byte integer.
func (b *Builder) I16() *Builder { return b.tag(TagI16) }

// I32 appends a 4 byte integer.
func (b *Builder) I32() *Builder { return b.tag(TagI32) }

// I64 appends an 8 byte integer.
func (b *Builder) I64() *Builder { return b.tag(TagI64) }

// Ref appends a reference of the given kind.
func (b *Builder) Ref(k RefKind) *Builder { return b.tag(k.Tag()) }

// Group appends an aligned group.
func (b *Builder) Group(fields ...Field) *Builder {
	b.tag(TagAlignedGroup)
	b.u32(uint32(len(fields)))
	for _, f := range fields {
		b.buf = append(b.buf, alignByte(f.Align))
		b.length(f.Layout)
		b.buf = append(b.buf, f.Layout...)
	}
	return b
}

// SinglePayload appends a single-payload enum.
func (b *Builder) SinglePayload(numEmpty uint32, payload []byte) *Builder {
	b.tag(TagSinglePayloadEnum)
	b.u32(numEmpty)
	b.length(payload)
	b.buf = append(b.buf, payload...)
	return b
}

// MultiPayload appends a multi-payload enum.
func (b *Builder) MultiPayload(numEmpty uint32, payloads ...[]byte) *Builder {
	b.tag(TagMultiPayloadEnum)
	b.u32(numEmpty)
	b.u32(uint32(len(payloads)))
	for _, p := range payloads {
		b.length(p)
	}
	for _, p := range payloads {
		b.buf = append(b.buf, p...)
	}
	return b
}

// Generic appends a placeholder for the generic argument at index.
func (b *Builder) Generic(index uint32) *Builder {
	b.tag(TagGeneric)
	b.u32(index)
	return b
}

// Raw appends already encoded layout bytes.
func (b *Builder) Raw(prog []byte) *Builder {
	b.buf = append(b.buf, prog...)
	return b
}

// Node appends the encoding of a decoded node.
func (b *Builder) Node(n Node) *Builder {
	switch n := n.(type) {
	case Scalar, Reference:
		return b.tag(n.Tag())
	case Group:
		return b.Group(n.Fields...)
	case SinglePayloadEnum:
		return b.SinglePayload(n.NumEmpty, n.Payload)
	case MultiPayloadEnum:
		return b.MultiPayload(n.NumEmpty, n.Payloads...)
	case Generic:
		return b.Generic(n.Index)
	}
	return b
}

// Build returns the program.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.buf, nil
}

// Bytes returns the program and panics if a length overflowed.
func (b *Builder) Bytes() []byte {
	prog, err := b.Build()
	if err != nil {
		panic(err)
	}
	return prog
}

// F is shorthand for a group field.
func F(align Align, prog []byte) Field {
	return Field{Align: align, Layout: prog}
}

package witness

import (
	valuewitness "github.com/wippyai/value-witness"
	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
)

// TypeWitness describes a type whose layout is only known at run time,
// such as a generic argument.
type TypeWitness interface {
	Size() uint32
	Alignment() uint32
	SpareBits() bitvec.Vector
	Destroy(mem valuewitness.Memory, objects ObjectRuntime, addr uint32) error
}

// Metadata resolves generic placeholders. It is owned by the caller and only
// read during a call.
type Metadata interface {
	GenericArg(index uint32) (TypeWitness, bool)
}

// GenericArgs is a Metadata backed by a slice.
type GenericArgs []TypeWitness

// GenericArg returns the argument at index.
func (g GenericArgs) GenericArg(index uint32) (TypeWitness, bool) {
	if uint64(index) >= uint64(len(g)) {
		return nil, false
	}
	return g[index], g[index] != nil
}

// Len returns the number of arguments.
func (g GenericArgs) Len() int {
	return len(g)
}

func resolve(md Metadata, index uint32) (TypeWitness, error) {
	if md != nil {
		if w, ok := md.GenericArg(index); ok {
			return w, nil
		}
	}
	count := 0
	if l, ok := md.(interface{ Len() int }); ok {
		count = l.Len()
	}
	return nil, errors.GenericIndex(errors.PhaseLayout, index, count)
}

// LayoutType is a TypeWitness described by its own layout program.
// Size, alignment and spare bits are computed once on construction.
type LayoutType struct {
	md    Metadata
	spare bitvec.Vector
	prog  []byte
	size  uint32
	align uint32
}

// NewLayoutType evaluates prog against md. The program's own generic
// placeholders resolve through md.
func NewLayoutType(prog []byte, md Metadata) (*LayoutType, error) {
	c := newCalculator(md)
	size, err := c.size(prog)
	if err != nil {
		return nil, err
	}
	align, err := c.alignment(prog)
	if err != nil {
		return nil, err
	}
	spare, err := c.spareBits(prog)
	if err != nil {
		return nil, err
	}
	return &LayoutType{md: md, prog: prog, size: size, align: align, spare: spare}, nil
}

// Size returns the value's size in bytes.
func (t *LayoutType) Size() uint32 { return t.size }

// Alignment returns the value's alignment in bytes.
func (t *LayoutType) Alignment() uint32 { return t.align }

// SpareBits returns a copy of the value's spare-bit mask.
func (t *LayoutType) SpareBits() bitvec.Vector { return t.spare.Clone() }

// Layout returns the program the type was built from.
func (t *LayoutType) Layout() []byte { return t.prog }

// Destroy releases everything owned by the value at addr.
func (t *LayoutType) Destroy(mem valuewitness.Memory, objects ObjectRuntime, addr uint32) error {
	return NewDestroyer(mem, objects).Destroy(addr, t.prog, t.md)
}

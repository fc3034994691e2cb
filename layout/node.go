package layout

import "fmt"

// Node is one decoded layout node.
type Node interface {
	// Tag returns the node's layout byte.
	Tag() byte
	node()
}

// Scalar is a fixed-width integer with no owned resources.
type Scalar struct {
	Width uint8
}

// Reference is a pointer-sized (or, for thick functions, two word) field
// that owns or references an object.
type Reference struct {
	Kind RefKind
}

// Align is a field alignment: a power-of-two exponent, or AlignUnknown.
type Align uint8

// AlignUnknown means the alignment comes from the field's own layout.
const AlignUnknown Align = 0xff

// Bytes returns the alignment in bytes. Unknown alignment reports 1.
func (a Align) Bytes() uint32 {
	if a == AlignUnknown {
		return 1
	}
	return uint32(1) << a
}

func (a Align) String() string {
	if a == AlignUnknown {
		return "?"
	}
	return fmt.Sprintf("%d", a.Bytes())
}

// AlignFor returns the exponent for a power-of-two byte alignment.
func AlignFor(bytes uint32) (Align, bool) {
	for exp := Align(0); exp <= 7; exp++ {
		if exp.Bytes() == bytes {
			return exp, true
		}
	}
	return 0, false
}

// Field is one member of an aligned group.
type Field struct {
	Layout []byte
	Align  Align
}

// Group is a sequence of fields laid out with per-field alignment.
type Group struct {
	Fields []Field
}

// SinglePayloadEnum has one payload case and NumEmpty payload-less cases.
type SinglePayloadEnum struct {
	Payload  []byte
	NumEmpty uint32
}

// MultiPayloadEnum has several payload cases and NumEmpty payload-less cases.
type MultiPayloadEnum struct {
	Payloads [][]byte
	NumEmpty uint32
}

// Generic stands for the generic argument at Index of the active metadata.
type Generic struct {
	Index uint32
}

func (s Scalar) Tag() byte          { return scalarTag(s.Width) }
func (r Reference) Tag() byte       { return r.Kind.Tag() }
func (Group) Tag() byte             { return TagAlignedGroup }
func (SinglePayloadEnum) Tag() byte { return TagSinglePayloadEnum }
func (MultiPayloadEnum) Tag() byte  { return TagMultiPayloadEnum }
func (Generic) Tag() byte           { return TagGeneric }
func (Scalar) node()                {}
func (Reference) node()             {}
func (Group) node()                 {}
func (SinglePayloadEnum) node()     {}
func (MultiPayloadEnum) node()      {}
func (Generic) node()               {}

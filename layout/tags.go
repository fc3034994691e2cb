package layout

import "fmt"

// Layout tag bytes.
const (
	TagI8                byte = 'c'
	TagI16               byte = 's'
	TagI32               byte = 'l'
	TagI64               byte = 'L'
	TagErrorRef          byte = 'r'
	TagNativeStrong      byte = 'N'
	TagNativeUnowned     byte = 'n'
	TagNativeWeak        byte = 'W'
	TagUnknownUnowned    byte = 'u'
	TagUnknownWeak       byte = 'w'
	TagBlock             byte = 'b'
	TagBridge            byte = 'B'
	TagForeignObject     byte = 'o'
	TagThickFunction     byte = 'f'
	TagAlignedGroup      byte = 'a'
	TagSinglePayloadEnum byte = 'e'
	TagMultiPayloadEnum  byte = 'E'
	TagGeneric           byte = 'A'
)

// AlignUnknownByte marks a group field whose alignment must be derived at run time.
const AlignUnknownByte byte = '?'

// RefKind is the ownership kind of a reference field. Each kind has its own
// release operation.
type RefKind uint8

const (
	RefError RefKind = iota
	RefNativeStrong
	RefNativeUnowned
	RefNativeWeak
	RefUnknownUnowned
	RefUnknownWeak
	RefBlock
	RefBridge
	RefForeignObject
	RefThickFunction
)

var refTags = [...]byte{
	RefError:          TagErrorRef,
	RefNativeStrong:   TagNativeStrong,
	RefNativeUnowned:  TagNativeUnowned,
	RefNativeWeak:     TagNativeWeak,
	RefUnknownUnowned: TagUnknownUnowned,
	RefUnknownWeak:    TagUnknownWeak,
	RefBlock:          TagBlock,
	RefBridge:         TagBridge,
	RefForeignObject:  TagForeignObject,
	RefThickFunction:  TagThickFunction,
}

var refNames = [...]string{
	RefError:          "error",
	RefNativeStrong:   "strong",
	RefNativeUnowned:  "unowned",
	RefNativeWeak:     "weak",
	RefUnknownUnowned: "unknown-unowned",
	RefUnknownWeak:    "unknown-weak",
	RefBlock:          "block",
	RefBridge:         "bridge",
	RefForeignObject:  "foreign-object",
	RefThickFunction:  "thick-function",
}

// Tag returns the layout byte for the kind.
func (k RefKind) Tag() byte {
	return refTags[k]
}

// Size returns the number of bytes a reference of this kind occupies.
func (k RefKind) Size() uint32 {
	if k == RefThickFunction {
		return 16
	}
	return 8
}

func (k RefKind) String() string {
	if int(k) < len(refNames) {
		return refNames[k]
	}
	return fmt.Sprintf("RefKind(%d)", k)
}

// RefKindOf maps a tag byte to its reference kind.
func RefKindOf(tag byte) (RefKind, bool) {
	for k, t := range refTags {
		if t == tag {
			return RefKind(k), true
		}
	}
	return 0, false
}

// ScalarWidthOf maps a tag byte to an integer width in bytes.
func ScalarWidthOf(tag byte) (uint8, bool) {
	switch tag {
	case TagI8:
		return 1, true
	case TagI16:
		return 2, true
	case TagI32:
		return 4, true
	case TagI64:
		return 8, true
	}
	return 0, false
}

func scalarTag(width uint8) byte {
	switch width {
	case 1:
		return TagI8
	case 2:
		return TagI16
	case 4:
		return TagI32
	default:
		return TagI64
	}
}

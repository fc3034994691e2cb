// Package layout reads and writes layout programs.
//
// A layout program is a sequence of tagged nodes describing a value's
// in-memory shape. Each tag is one byte; sizes and counts that follow a tag
// are big-endian uint32.
//
// # Grammar
//
//	VALUE   := SCALAR | REF | GROUP | SINGLE | MULTI | GENERIC
//	SCALAR  := 'c' | 's' | 'l' | 'L'              1, 2, 4, 8 byte integers
//	REF     := 'r' | 'N' | 'n' | 'W' | 'u' | 'w'  8 byte references
//	         | 'b' | 'B' | 'o' | 'f'              'f' is 16 bytes
//	GROUP   := 'a' COUNT (ALIGN SIZE VALUE*)*     ALIGN is '0'..'7' or '?'
//	SINGLE  := 'e' COUNT SIZE VALUE*              empty cases, payload
//	MULTI   := 'E' COUNT COUNT SIZE* VALUE*       empty cases, payloads
//	GENERIC := 'A' INDEX                          generic argument
//
// # Decoding
//
// A Reader decodes one node at a time. Groups and enums are decoded only far
// enough to locate the byte range of every field or payload; nested nodes
// are decoded when a consumer walks into them.
//
//	r := layout.NewReader(prog)
//	for !r.Done() {
//		node, err := r.Next()
//		...
//		switch n := node.(type) {
//		case layout.Scalar:
//		case layout.Reference:
//		case layout.Group:
//		case layout.SinglePayloadEnum:
//		case layout.MultiPayloadEnum:
//		case layout.Generic:
//		}
//	}
//
// # Text Form
//
// Tools and tests write programs in a compact text form:
//
//	a(0:c, 1:s, 3:N)    group of i8, i16 and a strong reference
//	e<1>(N)             optional strong reference
//	E<3>(l | l)         two i32 payloads and three empty cases
//	A<0>                first generic argument
package layout

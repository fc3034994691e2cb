// Package bitvec provides the bit vectors used to describe spare bits.
//
// A Vector is an ordered sequence of bits. Bytes are appended most
// significant bit first, so a vector built from the bytes of a value in
// memory order reads exactly like a hex dump of that value.
//
// Bitwise operations require operands of equal length and panic otherwise:
// callers extend the shorter operand first, with ones when the intent is
// "leave these bits alone" and with zeros when it is "these bits are used".
//
//	m := bitvec.FromBytes(0x07, 0, 0, 0, 0, 0, 0, 0xff)
//	m.Count()                  // 11
//	m.CountExtraInhabitants()  // MaxExtraInhabitants
//	v := data.Gather(m)        // PEXT of data under m
package bitvec

package bitvec

import (
	"fmt"
	"strings"
)

// MaxExtraInhabitants caps extra inhabitant counts so that at least one
// bit pattern of a 32-bit count remains inhabited.
const MaxExtraInhabitants uint32 = 0x7FFFFFFF

// Vector is a sequence of bits. The zero value is an empty vector.
type Vector struct {
	bits []bool
}

// New returns a vector of n zero bits.
func New(n int) Vector {
	return Vector{bits: make([]bool, n)}
}

// Ones returns a vector of n set bits.
func Ones(n int) Vector {
	v := New(n)
	for i := range v.bits {
		v.bits[i] = true
	}
	return v
}

// FromBytes returns a vector holding the given bytes, most significant bit first.
func FromBytes(values ...byte) Vector {
	var v Vector
	v.AppendBytes(values)
	return v
}

// FromBits returns a vector from individual bits; any non-zero entry is a set bit.
func FromBits(values ...uint8) Vector {
	v := New(len(values))
	for i, b := range values {
		v.bits[i] = b != 0
	}
	return v
}

// HighBitsSet returns a numBits wide vector whose top numBits-loBits bits are
// set, as the big-endian image of an integer with every bit >= loBits set.
func HighBitsSet(numBits, loBits int) Vector {
	v := New(numBits)
	for i := 0; i < numBits-loBits; i++ {
		v.bits[i] = true
	}
	return v
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make([]bool, len(v.bits))
	copy(out, v.bits)
	return Vector{bits: out}
}

// AppendByte appends the 8 bits of b, most significant first.
func (v *Vector) AppendByte(b byte) {
	for i := 7; i >= 0; i-- {
		v.bits = append(v.bits, (b>>uint(i))&1 == 1)
	}
}

// AppendBytes appends each byte in order.
func (v *Vector) AppendBytes(values []byte) {
	for _, b := range values {
		v.AppendByte(b)
	}
}

// Append appends another vector.
func (v *Vector) Append(other Vector) {
	v.bits = append(v.bits, other.bits...)
}

// AppendZeros appends n zero bits.
func (v *Vector) AppendZeros(n int) {
	for ; n > 0; n-- {
		v.bits = append(v.bits, false)
	}
}

// Concat returns v followed by other.
func (v Vector) Concat(other Vector) Vector {
	out := make([]bool, 0, len(v.bits)+len(other.bits))
	out = append(out, v.bits...)
	out = append(out, other.bits...)
	return Vector{bits: out}
}

// Len returns the number of bits.
func (v Vector) Len() int {
	return len(v.bits)
}

// Bit reports whether bit i is set.
func (v Vector) Bit(i int) bool {
	return v.bits[i]
}

// Set assigns bit i.
func (v Vector) Set(i int, on bool) {
	v.bits[i] = on
}

// Count returns the number of set bits.
func (v Vector) Count() int {
	n := 0
	for _, b := range v.bits {
		if b {
			n++
		}
	}
	return n
}

// None reports whether no bit is set.
func (v Vector) None() bool {
	for _, b := range v.bits {
		if b {
			return false
		}
	}
	return true
}

// Any reports whether at least one bit is set.
func (v Vector) Any() bool {
	return !v.None()
}

// ZeroExtendTo appends zero bits until the vector is n bits long.
// Vectors already n bits or longer are left unchanged.
func (v *Vector) ZeroExtendTo(n int) {
	if n > len(v.bits) {
		v.AppendZeros(n - len(v.bits))
	}
}

// OnesExtendTo appends set bits until the vector is n bits long.
func (v *Vector) OnesExtendTo(n int) {
	for len(v.bits) < n {
		v.bits = append(v.bits, true)
	}
}

// TruncateTo keeps the first n bits.
func (v *Vector) TruncateTo(n int) {
	if n < len(v.bits) {
		v.bits = v.bits[:n:n]
	}
}

// ExtendOrTruncateTo zero extends or truncates to exactly n bits.
func (v *Vector) ExtendOrTruncateTo(n int) {
	if n > len(v.bits) {
		v.ZeroExtendTo(n)
	} else {
		v.TruncateTo(n)
	}
}

func mustMatch(op string, a, b Vector) {
	if len(a.bits) != len(b.bits) {
		panic(fmt.Sprintf("bitvec: %s of unequal lengths %d and %d", op, len(a.bits), len(b.bits)))
	}
}

// AndAssign clears every bit of v that is clear in other.
// It panics if the lengths differ.
func (v *Vector) AndAssign(other Vector) {
	mustMatch("and", *v, other)
	for i := range v.bits {
		v.bits[i] = v.bits[i] && other.bits[i]
	}
}

// And returns the bitwise AND of v and other.
func (v Vector) And(other Vector) Vector {
	out := v.Clone()
	out.AndAssign(other)
	return out
}

// Not returns the bitwise complement.
func (v Vector) Not() Vector {
	out := New(len(v.bits))
	for i, b := range v.bits {
		out.bits[i] = !b
	}
	return out
}

// Equal reports whether both vectors hold the same bits.
func (v Vector) Equal(other Vector) bool {
	if len(v.bits) != len(other.bits) {
		return false
	}
	for i := range v.bits {
		if v.bits[i] != other.bits[i] {
			return false
		}
	}
	return true
}

// ToU32 interprets the vector as a big-endian integer. Only the last 32 bits survive.
func (v Vector) ToU32() uint32 {
	var out uint32
	for _, b := range v.bits {
		out <<= 1
		if b {
			out |= 1
		}
	}
	return out
}

// Gather packs the bits of v selected by mask into the low bits of an integer,
// like the PEXT instruction. The first selected bit ends up most significant.
// It panics if the lengths differ.
func (v Vector) Gather(mask Vector) uint32 {
	return v.GatherN(mask, -1)
}

// GatherN is Gather limited to the first width selected bits.
// A negative width gathers every selected bit.
func (v Vector) GatherN(mask Vector, width int) uint32 {
	mustMatch("gather", v, mask)
	if width == 0 {
		return 0
	}
	var out uint32
	got := 0
	for i, m := range mask.bits {
		if !m {
			continue
		}
		out <<= 1
		if v.bits[i] {
			out |= 1
		}
		got++
		if got == width {
			break
		}
	}
	return out
}

// CountExtraInhabitants returns the number of bit patterns of a value with
// this spare-bit mask that no valid value uses: every non-zero combination
// of spare bits crossed with every pattern of the remaining bits.
func (v Vector) CountExtraInhabitants() uint32 {
	if v.None() {
		return 0
	}
	if len(v.bits) >= 32 {
		return MaxExtraInhabitants
	}
	spare := uint(v.Count())
	nonSpare := uint(len(v.bits)) - spare
	raw := ((uint32(1) << spare) - 1) << nonSpare
	return min(raw, MaxExtraInhabitants)
}

// Bytes packs the vector into bytes, most significant bit first.
// A trailing partial byte is padded with zero bits.
func (v Vector) Bytes() []byte {
	out := make([]byte, (len(v.bits)+7)/8)
	for i, b := range v.bits {
		if b {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// MaskBytes ANDs the vector into data in place, byte for byte.
// Bits of data beyond the vector are left untouched.
func (v Vector) MaskBytes(data []byte) {
	for i, m := range v.Bytes() {
		if i >= len(data) {
			return
		}
		if rem := len(v.bits) - i*8; rem < 8 {
			m |= byte(0xff) >> uint(rem)
		}
		data[i] &= m
	}
}

// String formats the vector as hex, two bytes per group.
func (v Vector) String() string {
	var b strings.Builder
	for i, by := range v.Bytes() {
		if i > 0 && i%2 == 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", by)
	}
	return b.String()
}

// Package witness interprets layout programs against live memory.
//
// It computes the size, alignment and spare-bit mask of a value from its
// layout program, derives how enums pack their discriminants, and walks a
// value at an address to release the references it owns.
//
// # Spare bits
//
// Masks are in memory order: byte i of the value maps to bits 8i..8i+7,
// most significant bit first. A reference contributes
//
//	07 00 00 00 00 00 00 ff
//
// since objects are eight byte aligned and only the low 56 bits of a word
// carry an address. An aligned group keeps only the mask of the field with
// the most spare bits; on a tie the later field wins. Padding is never spare.
//
// # Enums
//
// A single-payload enum stores as many empty cases as it can in the
// payload's extra inhabitants and spills the rest into a tag of 1, 2 or 4
// bytes. A multi-payload enum intersects the payload masks (bytes past a
// shorter payload count as spare), stores the payload index in the common
// spare bits when they are wide enough, and otherwise appends a
// little-endian tag. ExtractPayloadTag decodes the discriminant of a live
// instance; InjectPayloadTag is its inverse. The spare bits that carry the
// payload index are not spare in the enum's own mask.
//
// # Destruction
//
//	d := witness.NewDestroyer(mem, objects)
//	err := d.Destroy(addr, prog, witness.GenericArgs{argType})
//
// Null reference words are skipped. Multi-payload payloads have their tag
// bits cleared in memory before the payload is walked.
//
// Results are never cached across calls. Every exported function re-derives
// what it needs from the program bytes.
package witness

// Package valuewitness interprets serialized type layouts at runtime.
//
// A layout program is a compact byte description of an aggregate value's
// in-memory shape. From it the library derives the value's size, the bits of
// its representation that no valid instance uses (spare bits), how enum
// discriminants are packed into those bits, and finally walks a live value to
// release every reference it owns.
//
// # Architecture Overview
//
//	valuewitness/        Root package with the Memory and Allocator interfaces
//	├── bitvec/          Bit vectors: masks, gather (PEXT), extra inhabitants
//	├── layout/          Layout tag alphabet, decoder, builder, text assembly
//	├── witness/         Size/spare-bit calculator, enum tag codec, destroy
//	├── memory/          Byte-slice and wazero linear-memory address spaces
//	├── heap/            Reference-counted object runtime (release operations)
//	├── errors/          Structured error types
//	└── cmd/vwitness/    Command line inspector
//
// # Quick Start
//
//	prog := layout.MustParse("a(0:c, 1:s, 3:N)")
//	size, err := witness.ComputeSize(prog, nil)      // 16
//	mask, err := witness.ComputeSpareBits(prog, nil) // pointer bits of N
//
//	objects := heap.New()
//	d := witness.NewDestroyer(mem, objects)
//	err = d.Destroy(addr, prog, nil)                 // releases the N field
//
// # Representation
//
// Spare-bit vectors carry one bit per representation bit, in memory byte
// order with the most significant bit of each byte first. A 64-bit reference
// on a little-endian target therefore has the mask 07 00 00 00 00 00 00 ff.
//
// # Thread Safety
//
// Every operation is synchronous and keeps no state between calls. The
// memory passed to Destroy must not be touched by anyone else while the walk
// is in progress.
package valuewitness

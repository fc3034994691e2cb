// Package memory provides address spaces for the destruction interpreter.
//
// Bytes is a plain slice-backed memory with a bump allocator, used by tests
// and the command line tool. Wrapper adapts a wazero linear memory so values
// living inside a WebAssembly instance can be walked in place:
//
//	mem := memory.Wrap(mod.ExportedMemory("memory"))
//	err := witness.NewDestroyer(mem, objects).Destroy(addr, prog, md)
//
// All multi-byte accessors are little-endian.
package memory

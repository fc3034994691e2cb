// Package errors provides structured error types for the value-witness library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the layout offset, the tag byte involved, a node path
// and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindUnknownTag).
//		Offset(12).
//		Tag('Z').
//		Path("field 2", "payload 0").
//		Detail("unrecognized layout tag").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Truncated(errors.PhaseDecode, 12, 4, 2)
//	err := errors.GenericIndex(errors.PhaseLayout, 3, 1)
//
// Every malformed program error means the producer and the interpreter
// disagree about the layout ABI. Callers are expected to treat them as fatal.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

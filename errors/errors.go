package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode  Phase = "decode"  // reading layout bytes
	PhaseLayout  Phase = "layout"  // size, alignment, spare bits
	PhaseDestroy Phase = "destroy" // walking a live value
	PhaseMemory  Phase = "memory"  // address space access
	PhaseParse   Phase = "parse"   // layout text assembly
	PhaseConfig  Phase = "config"  // metadata configuration
)

// Kind categorizes the error
type Kind string

const (
	KindMalformed    Kind = "malformed_layout"
	KindUnknownTag   Kind = "unknown_tag"
	KindTruncated    Kind = "truncated"
	KindAlignment    Kind = "invalid_alignment"
	KindGenericIndex Kind = "generic_index"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindOverflow     Kind = "overflow"
	KindAllocation   Kind = "allocation"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindSyntax       Kind = "syntax"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Offset int
	Tag    byte
	// HasOffset distinguishes offset 0 from "no offset".
	HasOffset bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "/"))
	}

	if e.HasOffset {
		fmt.Fprintf(&b, " (offset %d", e.Offset)
		if e.Tag != 0 {
			fmt.Fprintf(&b, ", tag %s", tagString(e.Tag))
		}
		b.WriteByte(')')
	} else if e.Tag != 0 {
		fmt.Fprintf(&b, " (tag %s)", tagString(e.Tag))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func tagString(t byte) string {
	if t >= 0x21 && t < 0x7f {
		return fmt.Sprintf("%q", rune(t))
	}
	return fmt.Sprintf("0x%02x", t)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the node path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the layout program offset
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	b.err.HasOffset = true
	return b
}

// Tag sets the tag byte involved
func (b *Builder) Tag(t byte) *Builder {
	b.err.Tag = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownTag creates an unrecognized tag byte error
func UnknownTag(phase Phase, offset int, tag byte) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindUnknownTag,
		Offset:    offset,
		HasOffset: true,
		Tag:       tag,
		Detail:    "unrecognized layout tag",
		Value:     tag,
	}
}

// Truncated creates an error for an operand that runs past the end of the program
func Truncated(phase Phase, offset, want, have int) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTruncated,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("need %d bytes, %d remaining", want, have),
	}
}

// Malformed creates a generic malformed program error
func Malformed(phase Phase, offset int, detail string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindMalformed,
		Offset:    offset,
		HasOffset: true,
		Detail:    detail,
	}
}

// InvalidAlignment creates an error for a bad field alignment byte
func InvalidAlignment(phase Phase, offset int, align byte) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindAlignment,
		Offset:    offset,
		HasOffset: true,
		Tag:       align,
		Detail:    "alignment must be '0'..'7' or '?'",
		Value:     align,
	}
}

// GenericIndex creates an out-of-range generic argument error
func GenericIndex(phase Phase, index uint32, count int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericIndex,
		Detail: fmt.Sprintf("generic argument %d out of range (%d available)", index, count),
		Value:  index,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access out of bounds: offset=%d, length=%d", offset, length),
		Value:  offset,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Syntax creates a text assembly error at a character position
func Syntax(pos int, detail string) *Error {
	return &Error{
		Phase:     PhaseParse,
		Kind:      KindSyntax,
		Offset:    pos,
		HasOffset: true,
		Detail:    detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// At prepends a path element to a structured error, leaving other errors alone.
// Used while unwinding nested layout nodes.
func At(err error, elem string) error {
	if e, ok := err.(*Error); ok {
		e.Path = append([]string{elem}, e.Path...)
	}
	return err
}

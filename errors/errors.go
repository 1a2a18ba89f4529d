package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // engine construction
	PhaseFetch   Phase = "fetch"   // pretrained download/cache
	PhaseEncode  Phase = "encode"  // text to encoding
	PhaseDecode  Phase = "decode"  // ids to text
	PhaseMarshal Phase = "marshal" // Go values to/from foreign memory
	PhaseRelease Phase = "release" // handle and buffer release
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNilPointer   Kind = "nil_pointer"
	KindInvalidUTF8  Kind = "invalid_utf8"
	KindNotFound     Kind = "not_found"
	KindInvalidData  Kind = "invalid_data"
	KindAllocation   Kind = "allocation"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindUnknownID    Kind = "unknown_id"
	KindNetwork      Kind = "network"
	KindEngine       Kind = "engine"
	KindPanic        Kind = "panic"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Path   []string
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
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Op sets the boundary operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
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

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, addr, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("address %#x length %d out of bounds", addr, length),
		Value:  addr,
	}
}

// NilPointer creates a nil pointer error for a required argument
func NilPointer(phase Phase, op string, path ...string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Op:     op,
		Path:   path,
		Detail: "null pointer",
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

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// UnknownID creates an error for a token id outside the vocabulary
func UnknownID(id uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownID,
		Detail: fmt.Sprintf("token id %d not in vocabulary", id),
		Value:  id,
	}
}

// Engine wraps a failure reported by the tokenization engine
func Engine(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEngine,
		Detail: "engine failure",
		Cause:  cause,
	}
}

// Panic converts a recovered panic value into an error
func Panic(phase Phase, op string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Op:     op,
		Detail: fmt.Sprintf("recovered panic: %v", value),
		Value:  value,
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

// Load creates an engine loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

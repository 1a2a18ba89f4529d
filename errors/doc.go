// Package errors provides structured error types for the tokenizer boundary.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: boundary operation, field path, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindNilPointer).
//		Op("tokenizer_encode").
//		Path("text").
//		Detail("text pointer is null").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownID(50000)
//	err := errors.OutOfBounds(errors.PhaseMarshal, addr, 16)
//
// None of these errors cross the C or wasm surface: the boundary logs them
// and returns a null sentinel. They are returned as-is by the Go APIs.
package errors

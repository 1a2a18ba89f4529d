// Package cabi provides the C heap address space used by the shared library
// build. Boundary structs and buffers are allocated with calloc so that they
// never live in Go memory and can be held by C callers indefinitely.
package cabi

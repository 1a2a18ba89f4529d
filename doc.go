// Package tokenizerffi exposes a HuggingFace-compatible tokenizer through a
// flat, C-compatible function surface.
//
// The interesting part is not tokenization (delegated to an external engine)
// but the foreign-function boundary: opaque handles for a tokenizer and for a
// tokenization result, a strict split between borrowed and transferred
// buffers, and collapsing every failure to a null sentinel.
//
// # Architecture Overview
//
//	tokenizerffi/        Root package with the Memory, Allocator and Space interfaces
//	├── abi/             Boundary core: handles, accessors, release functions
//	├── cabi/            C heap address space (cgo)
//	├── wasmhost/        Same surface as a wazero host module for wasm guests
//	├── engine/          Engine capability backed by sugarme/tokenizer
//	├── hub/             Named pretrained tokenizer resolution and cache
//	├── config/          YAML + environment configuration
//	├── resource/        Handle table
//	├── errors/          Structured error types
//	└── cmd/
//	    ├── libtokenizers/  C shared library (go build -buildmode=c-shared)
//	    └── tokenize/       CLI and interactive playground
//
// # Ownership
//
// Two kinds of buffers cross the boundary:
//
//	borrowed     ids, type_ids, special_tokens_mask, attention_mask, offsets
//	             Owned by the CEncoding; valid until encoding_free.
//	transferred  tokens array, overflow array, decoded text
//	             Owned by the caller; released with free_c_char_array,
//	             free_encoding_array and free_rstring respectively.
//
// Every handle and every transferred allocation must be released exactly
// once. Double release and use after release are undefined behavior; the
// boundary does not track liveness across an opaque pointer.
//
// # Thread Safety
//
// The handle table is synchronized, so distinct handles may be used from
// distinct threads. A single tokenizer handle carries no guarantee for
// concurrent calls: use one handle per thread or an external lock.
package tokenizerffi

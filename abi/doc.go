// Package abi implements the tokenizer boundary over an abstract foreign
// address space.
//
// Every exported operation of the C library and the wasm host module is a
// Surface method taking and returning raw addresses. The Surface reads
// arguments out of the address space, calls the engine, and writes results
// back as boundary structs:
//
//	TokenizerHandle            { id }
//	CEncoding                  { id, ids*, type_ids*, special_tokens_mask*,
//	                             attention_mask*, offsets*, length }
//	CTokenOffset               { start, end }
//	CFromPretrainedParameters  { revision*, token* }
//
// Each field is one word of the Layout (8 bytes natively, 4 on wasm32).
// The id fields refer to entries in a resource table; Go values never leave
// Go memory.
//
// # Ownership
//
// Borrowed arrays (ids, type ids, masks, offsets) are allocated once when a
// CEncoding is created and freed with it. Transferred allocations (decoded
// text, token arrays, overflow arrays) belong to the caller and are freed
// with FreeString, FreeStringArray and FreeEncodingArray.
//
// # Failure
//
// No error crosses the boundary. Failures are logged at debug level through
// Logger and return 0. A zero length passed to FromBuffer or Decode is a
// caller bug and panics.
//
// Arena and Reader provide an in-process address space and a result decoder
// for tools and tests.
package abi

package main

/*
#include "tokenizers_types.h"
*/
import "C"

import "unsafe"

func addr(p unsafe.Pointer) uint64 {
	return uint64(uintptr(p))
}

func ptr(v uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(v))
}

func cString(v uint64) *C.char { return (*C.char)(ptr(v)) }
func handlePtr(v uint64) *C.TokenizerHandle { return (*C.TokenizerHandle)(ptr(v)) }
func encodingPtr(v uint64) *C.CEncoding { return (*C.CEncoding)(ptr(v)) }
func u32Ptr(v uint64) *C.uint32_t { return (*C.uint32_t)(ptr(v)) }
// uintPtr, uintptrPtr, bytePtr, size and paramsPtr exist for exports_test.go,
// which cannot name C types itself.
func uintPtr(v uint64) *C.uint { return (*C.uint)(ptr(v)) }
func uintptrPtr(v uint64) *C.uintptr_t { return (*C.uintptr_t)(ptr(v)) }
func bytePtr(v uint64) *C.uint8_t { return (*C.uint8_t)(ptr(v)) }
func offsetPtr(v uint64) *C.CTokenOffset { return (*C.CTokenOffset)(ptr(v)) }
func size(n int) C.uintptr_t { return C.uintptr_t(n) }
func paramsPtr(v uint64) *C.CFromPretrainedParameters {
	return (*C.CFromPretrainedParameters)(ptr(v))
}

//export tokenizer_from_pretrained
func tokenizer_from_pretrained(name *C.char, params *C.CFromPretrainedParameters) *C.TokenizerHandle {
	return handlePtr(surface().FromPretrained(addr(unsafe.Pointer(name)), addr(unsafe.Pointer(params))))
}

//export tokenizer_from_buffer
func tokenizer_from_buffer(buffer *C.uint8_t, length C.uintptr_t) *C.TokenizerHandle {
	return handlePtr(surface().FromBuffer(addr(unsafe.Pointer(buffer)), uint64(length)))
}

//export tokenizer_from_file
func tokenizer_from_file(path *C.char) *C.TokenizerHandle {
	return handlePtr(surface().FromFile(addr(unsafe.Pointer(path))))
}

//export tokenizer_free
func tokenizer_free(handle *C.TokenizerHandle) {
	surface().FreeTokenizer(addr(unsafe.Pointer(handle)))
}

//export tokenizer_encode
func tokenizer_encode(handle *C.TokenizerHandle, text *C.char, addSpecialTokens C.bool) *C.CEncoding {
	return encodingPtr(surface().Encode(addr(unsafe.Pointer(handle)), addr(unsafe.Pointer(text)), bool(addSpecialTokens)))
}

//export tokenizer_decode
func tokenizer_decode(handle *C.TokenizerHandle, ids *C.uint, length C.uintptr_t, skipSpecialTokens C.bool) *C.char {
	return cString(surface().Decode(addr(unsafe.Pointer(handle)), addr(unsafe.Pointer(ids)), uint64(length), bool(skipSpecialTokens)))
}

//export free_rstring
func free_rstring(s *C.char) {
	surface().FreeString(addr(unsafe.Pointer(s)))
}

//export encoding_get_length
func encoding_get_length(encoding *C.CEncoding) C.uintptr_t {
	return C.uintptr_t(surface().EncodingLength(addr(unsafe.Pointer(encoding))))
}

//export encoding_get_ids
func encoding_get_ids(encoding *C.CEncoding, length *C.uintptr_t) *C.uint32_t {
	return u32Ptr(surface().EncodingIDs(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_get_tokens
func encoding_get_tokens(encoding *C.CEncoding, length *C.uintptr_t) **C.char {
	return (**C.char)(ptr(surface().EncodingTokens(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length)))))
}

//export encoding_get_type_ids
func encoding_get_type_ids(encoding *C.CEncoding, length *C.uintptr_t) *C.uint32_t {
	return u32Ptr(surface().EncodingTypeIDs(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_get_special_tokens_mask
func encoding_get_special_tokens_mask(encoding *C.CEncoding, length *C.uintptr_t) *C.uint32_t {
	return u32Ptr(surface().EncodingSpecialTokensMask(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_get_attention_mask
func encoding_get_attention_mask(encoding *C.CEncoding, length *C.uintptr_t) *C.uint32_t {
	return u32Ptr(surface().EncodingAttentionMask(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_get_offsets
func encoding_get_offsets(encoding *C.CEncoding, length *C.uintptr_t) *C.CTokenOffset {
	return offsetPtr(surface().EncodingOffsets(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_get_overflowing
func encoding_get_overflowing(encoding *C.CEncoding, length *C.uintptr_t) *C.CEncoding {
	return encodingPtr(surface().EncodingOverflowing(addr(unsafe.Pointer(encoding)), addr(unsafe.Pointer(length))))
}

//export encoding_free
func encoding_free(encoding *C.CEncoding) {
	surface().FreeEncoding(addr(unsafe.Pointer(encoding)))
}

//export free_c_char_array
func free_c_char_array(array **C.char, length C.uintptr_t) {
	surface().FreeStringArray(addr(unsafe.Pointer(array)), uint64(length))
}

//export free_encoding_array
func free_encoding_array(array *C.CEncoding, length C.uintptr_t) {
	surface().FreeEncodingArray(addr(unsafe.Pointer(array)), uint64(length))
}

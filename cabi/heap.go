package cabi

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"bytes"
	"fmt"
	"unsafe"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
)

// maxAlign is the alignment calloc guarantees for any allocation.
const maxAlign = 16

// Heap is the C heap of the current process as a boundary address space.
// Addresses are C pointers; memory from Alloc is released with free(3), so
// C callers may also release it with free directly.
type Heap struct{}

var _ tokenizerffi.Space = Heap{}

func ptr(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// Alloc returns zeroed memory from calloc.
func (Heap) Alloc(size, align uint64) (uint64, error) {
	if align > maxAlign {
		return 0, fmt.Errorf("alignment %d exceeds %d", align, maxAlign)
	}
	if size == 0 {
		size = 1
	}
	p := C.calloc(1, C.size_t(size))
	if p == nil {
		return 0, fmt.Errorf("calloc(%d) failed", size)
	}
	return uint64(uintptr(p)), nil
}

// Free releases memory obtained from Alloc.
func (Heap) Free(addr, _, _ uint64) {
	if addr != 0 {
		C.free(ptr(addr))
	}
}

// Read copies length bytes starting at addr.
func (Heap) Read(addr, length uint64) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("null address")
	}
	if length == 0 {
		return []byte{}, nil
	}
	return bytes.Clone(unsafe.Slice((*byte)(ptr(addr)), length)), nil
}

// Write copies data to addr.
func (Heap) Write(addr uint64, data []byte) error {
	if addr == 0 {
		return fmt.Errorf("null address")
	}
	if len(data) > 0 {
		copy(unsafe.Slice((*byte)(ptr(addr)), len(data)), data)
	}
	return nil
}

// ReadCString copies the NUL-terminated string at addr, without the NUL.
func (Heap) ReadCString(addr uint64) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("null address")
	}
	n := C.strlen((*C.char)(ptr(addr)))
	return bytes.Clone(unsafe.Slice((*byte)(ptr(addr)), uint64(n))), nil
}

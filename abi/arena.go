package abi

import (
	"bytes"
	"fmt"
	"sync"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
)

// Arena is an in-process address space backed by a Go byte slice. It lets
// tools and tests drive a Surface without cgo or a wasm guest, and tracks
// every live allocation so release discipline can be checked.
//
// Allocation is bump-only; freed memory is not reused.
type Arena struct {
	live  map[uint64]uint64
	fault error
	mem   []byte
	mu    sync.Mutex
}

var _ tokenizerffi.Space = (*Arena)(nil)

// arenaBase keeps address 0 (and a little beyond) unallocated.
const arenaBase = 64

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		live: make(map[uint64]uint64),
		mem:  make([]byte, arenaBase, 4096),
	}
}

// Alloc reserves size zeroed bytes aligned to align.
func (a *Arena) Alloc(size, align uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("invalid alignment %d", align)
	}
	addr := (uint64(len(a.mem)) + align - 1) &^ (align - 1)
	end := addr + size
	if end < addr || end > 1<<32 {
		return 0, fmt.Errorf("arena exhausted allocating %d bytes", size)
	}
	a.mem = append(a.mem, make([]byte, end-uint64(len(a.mem)))...)
	a.live[addr] = size
	return addr, nil
}

// Free releases an allocation. Freeing an unknown address or passing the
// wrong size is recorded as a fault.
func (a *Arena) Free(addr, size, align uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	got, ok := a.live[addr]
	switch {
	case !ok:
		a.setFault(fmt.Errorf("free of unallocated address %#x", addr))
	case got != size:
		a.setFault(fmt.Errorf("free of %#x with size %d, allocated %d", addr, size, got))
	}
	delete(a.live, addr)
}

func (a *Arena) setFault(err error) {
	if a.fault == nil {
		a.fault = err
	}
}

// Read returns a copy of length bytes at addr.
func (a *Arena) Read(addr, length uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(addr, length); err != nil {
		return nil, err
	}
	return bytes.Clone(a.mem[addr : addr+length]), nil
}

// Write copies data to addr.
func (a *Arena) Write(addr uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(a.mem[addr:], data)
	return nil
}

// ReadCString reads bytes from addr up to the next NUL.
func (a *Arena) ReadCString(addr uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(addr, 1); err != nil {
		return nil, err
	}
	n := bytes.IndexByte(a.mem[addr:], 0)
	if n < 0 {
		return nil, fmt.Errorf("unterminated string at %#x", addr)
	}
	return bytes.Clone(a.mem[addr : addr+uint64(n)]), nil
}

func (a *Arena) check(addr, length uint64) error {
	if addr == 0 {
		return fmt.Errorf("null address")
	}
	end := addr + length
	if end < addr || end > uint64(len(a.mem)) {
		return fmt.Errorf("range [%#x, +%d) out of bounds", addr, length)
	}
	return nil
}

// Put allocates and fills a buffer, returning its address.
func (a *Arena) Put(data []byte, align uint64) (uint64, error) {
	addr, err := a.Alloc(max(uint64(len(data)), 1), align)
	if err != nil {
		return 0, err
	}
	return addr, a.Write(addr, data)
}

// PutCString allocates a NUL-terminated copy of s.
func (a *Arena) PutCString(s string) (uint64, error) {
	return a.Put(append([]byte(s), 0), 1)
}

// Live returns the number of outstanding allocations.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Err returns the first misuse recorded by Free.
func (a *Arena) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fault
}

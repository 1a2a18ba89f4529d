package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
)

// ReallocExport is the guest export used for transferred allocations.
const ReallocExport = "cabi_realloc"

// guestMemory adapts a guest's linear memory to tokenizerffi.Memory.
// Reads return copies, since a later allocation may grow and move memory.
type guestMemory struct {
	mem api.Memory
}

func offset(addr uint64) (uint32, error) {
	if addr == 0 || addr > math.MaxUint32 {
		return 0, fmt.Errorf("invalid guest address %#x", addr)
	}
	return uint32(addr), nil
}

func (m guestMemory) Read(addr, length uint64) ([]byte, error) {
	off, err := offset(addr)
	if err != nil {
		return nil, err
	}
	if length > math.MaxUint32 {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", off, length)
	}
	data, ok := m.mem.Read(off, uint32(length))
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", off, length)
	}
	return bytes.Clone(data), nil
}

func (m guestMemory) Write(addr uint64, data []byte) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.mem.Write(off, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", off, len(data))
	}
	return nil
}

func (m guestMemory) ReadCString(addr uint64) ([]byte, error) {
	off, err := offset(addr)
	if err != nil {
		return nil, err
	}
	size := m.mem.Size()
	if off >= size {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d", off)
	}
	rest, _ := m.mem.Read(off, size-off)
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return nil, fmt.Errorf("unterminated string at offset=%d", off)
	}
	return bytes.Clone(rest[:n]), nil
}

// reallocAllocator allocates through the guest's cabi_realloc export.
type reallocAllocator struct {
	ctx context.Context
	fn  api.Function
}

func (a reallocAllocator) Alloc(size, align uint64) (uint64, error) {
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("allocation of %d bytes exceeds guest address space", size)
	}
	results, err := a.fn.Call(a.ctx, 0, 0, align, size)
	if err != nil {
		return 0, fmt.Errorf("allocation failed: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocation returned no result")
	}
	return uint64(api.DecodeU32(results[0])), nil
}

func (a reallocAllocator) Free(addr, size, align uint64) {
	_, _ = a.fn.Call(a.ctx, addr, size, align, 0)
}

// missingAllocator fails every allocation; calls that only read or release
// still work for guests without an allocator export.
type missingAllocator struct{}

func (missingAllocator) Alloc(_, _ uint64) (uint64, error) {
	return 0, fmt.Errorf("guest does not export %s", ReallocExport)
}

func (missingAllocator) Free(_, _, _ uint64) {}

type space struct {
	tokenizerffi.Memory
	tokenizerffi.Allocator
}

// GuestAllocator returns the allocator backed by mod's cabi_realloc export,
// or nil when the guest does not export one.
func GuestAllocator(ctx context.Context, mod api.Module) tokenizerffi.Allocator {
	fn := mod.ExportedFunction(ReallocExport)
	if fn == nil {
		return nil
	}
	return reallocAllocator{ctx: ctx, fn: fn}
}

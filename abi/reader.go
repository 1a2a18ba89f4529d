package abi

import (
	"fmt"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
	"github.com/wippyai/tokenizer-ffi/engine"
)

// Reader decodes boundary results from a foreign address space back into
// Go values. It is the caller's side of the contract: tools and tests use
// it to inspect what the surface produced.
type Reader struct {
	Memory tokenizerffi.Memory
	Layout Layout
}

// Reader returns a Reader over the surface's address space.
func (s *Surface) Reader() Reader {
	return Reader{Memory: s.space, Layout: s.layout}
}

// Word reads one word at addr.
func (r Reader) Word(addr uint64) (uint64, error) {
	b, err := r.Memory.Read(addr, r.Layout.PtrSize)
	if err != nil {
		return 0, err
	}
	return r.Layout.Word(b), nil
}

// U32s reads n uint32 values at addr.
func (r Reader) U32s(addr, n uint64) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := r.Memory.Read(addr, 4*n)
	if err != nil {
		return nil, err
	}
	return r.Layout.ParseU32s(b), nil
}

// Offsets reads n CTokenOffset values at addr.
func (r Reader) Offsets(addr, n uint64) ([]engine.Offset, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := r.Memory.Read(addr, n*r.Layout.OffsetSize())
	if err != nil {
		return nil, err
	}
	out := make([]engine.Offset, n)
	w := r.Layout.PtrSize
	for i := range out {
		base := uint64(i) * 2 * w
		out[i] = engine.Offset{
			Start: uint(r.Layout.Word(b[base:])),
			End:   uint(r.Layout.Word(b[base+w:])),
		}
	}
	return out, nil
}

// CString reads a NUL-terminated string at addr.
func (r Reader) CString(addr uint64) (string, error) {
	b, err := r.Memory.ReadCString(addr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Strings reads an array of n string pointers at addr.
func (r Reader) Strings(addr, n uint64) ([]string, error) {
	out := make([]string, n)
	for i := uint64(0); i < n; i++ {
		p, err := r.Word(addr + i*r.Layout.PtrSize)
		if err != nil {
			return nil, err
		}
		if p == 0 {
			return nil, fmt.Errorf("null string at index %d", i)
		}
		if out[i], err = r.CString(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CEncoding is the raw field content of one CEncoding struct.
type CEncoding struct {
	ID                uint64
	IDs               uint64
	TypeIDs           uint64
	SpecialTokensMask uint64
	AttentionMask     uint64
	Offsets           uint64
	Length            uint64
}

// CEncoding reads the struct at addr.
func (r Reader) CEncoding(addr uint64) (CEncoding, error) {
	b, err := r.Memory.Read(addr, encodingWords*r.Layout.PtrSize)
	if err != nil {
		return CEncoding{}, err
	}
	w := func(i uint64) uint64 { return r.Layout.Word(b[i*r.Layout.PtrSize:]) }
	return CEncoding{
		ID:                w(encFieldID),
		IDs:               w(1 + viewIDs),
		TypeIDs:           w(1 + viewTypeIDs),
		SpecialTokensMask: w(1 + viewSpecialTokensMask),
		AttentionMask:     w(1 + viewAttentionMask),
		Offsets:           w(1 + viewOffsets),
		Length:            w(encFieldLength),
	}, nil
}

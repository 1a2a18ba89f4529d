package abi

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Layout describes how boundary structs are laid out in a foreign address
// space. Every pointer, id and length field occupies one word.
type Layout struct {
	Order   binary.ByteOrder
	PtrSize uint64
}

var (
	// Native is the layout of the host process (C shared library).
	Native = Layout{PtrSize: uint64(bits.UintSize / 8), Order: binary.NativeEndian}

	// Wasm32 is the layout of a wasm32 guest.
	Wasm32 = Layout{PtrSize: 4, Order: binary.LittleEndian}
)

// Word counts of the boundary structs.
const (
	handleWords   = 1 // TokenizerHandle{id}
	encodingWords = 7 // CEncoding{id, ids, type_ids, special_tokens_mask, attention_mask, offsets, length}
	offsetWords   = 2 // CTokenOffset{start, end}
	paramsWords   = 2 // CFromPretrainedParameters{revision, token}
)

// Field word indexes inside CEncoding.
const (
	encFieldID     = 0
	encFieldLength = 6
)

// HandleSize is the size of a TokenizerHandle.
func (l Layout) HandleSize() uint64 { return handleWords * l.PtrSize }

// EncodingSize is the size of a CEncoding, also the stride of overflow arrays.
func (l Layout) EncodingSize() uint64 { return encodingWords * l.PtrSize }

// OffsetSize is the size of a CTokenOffset.
func (l Layout) OffsetSize() uint64 { return offsetWords * l.PtrSize }

// ParamsSize is the size of CFromPretrainedParameters.
func (l Layout) ParamsSize() uint64 { return paramsWords * l.PtrSize }

// MaxWord is the largest value one word can hold.
func (l Layout) MaxWord() uint64 {
	if l.PtrSize >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*l.PtrSize) - 1
}

// PutWord stores v into b[:PtrSize].
func (l Layout) PutWord(b []byte, v uint64) error {
	if v > l.MaxWord() {
		return fmt.Errorf("value %d does not fit a %d-byte word", v, l.PtrSize)
	}
	switch l.PtrSize {
	case 4:
		l.Order.PutUint32(b, uint32(v))
	case 8:
		l.Order.PutUint64(b, v)
	default:
		return fmt.Errorf("unsupported word size %d", l.PtrSize)
	}
	return nil
}

// Word loads one word from b[:PtrSize].
func (l Layout) Word(b []byte) uint64 {
	if l.PtrSize == 4 {
		return uint64(l.Order.Uint32(b))
	}
	return l.Order.Uint64(b)
}

// Words packs vs into consecutive words.
func (l Layout) Words(vs ...uint64) ([]byte, error) {
	buf := make([]byte, uint64(len(vs))*l.PtrSize)
	for i, v := range vs {
		if err := l.PutWord(buf[uint64(i)*l.PtrSize:], v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// U32s packs vs as contiguous uint32 values.
func (l Layout) U32s(vs []uint32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		l.Order.PutUint32(buf[4*i:], v)
	}
	return buf
}

// ParseU32s unpacks contiguous uint32 values.
func (l Layout) ParseU32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = l.Order.Uint32(b[4*i:])
	}
	return out
}

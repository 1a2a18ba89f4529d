package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/abi"
)

// function is one import of the tokenizers module. Every parameter and
// result is an i32: wasm32 pointers, lengths and C bools all fit.
type function struct {
	name    string
	params  int
	results int
	call    func(s *abi.Surface, args []uint64) uint64
}

func (f function) paramTypes() []api.ValueType {
	return i32s(f.params)
}

func (f function) resultTypes() []api.ValueType {
	return i32s(f.results)
}

func i32s(n int) []api.ValueType {
	ts := make([]api.ValueType, n)
	for i := range ts {
		ts[i] = api.ValueTypeI32
	}
	return ts
}

func (f function) handler(h *Host) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]uint64, f.params)
		for i := range args {
			args[i] = uint64(api.DecodeU32(stack[i]))
		}

		var ret uint64
		s, err := h.surface(ctx, mod)
		if err != nil {
			Logger().Debug("guest call rejected",
				zap.String("op", f.name),
				zap.Error(err))
		} else {
			ret = f.call(s, args)
		}
		if f.results > 0 {
			stack[0] = api.EncodeU32(uint32(ret))
		}
	}
}

func boolArg(v uint64) bool { return v != 0 }

func (h *Host) functions() []function {
	return []function{
		{abi.OpFromPretrained, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.FromPretrained(a[0], a[1])
		}},
		{abi.OpFromBuffer, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.FromBuffer(a[0], a[1])
		}},
		{abi.OpFromFile, 1, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.FromFile(a[0])
		}},
		{abi.OpFreeTokenizer, 1, 0, func(s *abi.Surface, a []uint64) uint64 {
			s.FreeTokenizer(a[0])
			return 0
		}},
		{abi.OpEncode, 3, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.Encode(a[0], a[1], boolArg(a[2]))
		}},
		{abi.OpDecode, 4, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.Decode(a[0], a[1], a[2], boolArg(a[3]))
		}},
		{abi.OpFreeString, 1, 0, func(s *abi.Surface, a []uint64) uint64 {
			s.FreeString(a[0])
			return 0
		}},
		{abi.OpEncodingFree, 1, 0, func(s *abi.Surface, a []uint64) uint64 {
			s.FreeEncoding(a[0])
			return 0
		}},
		{abi.OpEncodingLength, 1, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingLength(a[0])
		}},
		{abi.OpEncodingIDs, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingIDs(a[0], a[1])
		}},
		{abi.OpEncodingTokens, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingTokens(a[0], a[1])
		}},
		{abi.OpEncodingTypeIDs, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingTypeIDs(a[0], a[1])
		}},
		{abi.OpEncodingSpecialMask, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingSpecialTokensMask(a[0], a[1])
		}},
		{abi.OpEncodingAttention, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingAttentionMask(a[0], a[1])
		}},
		{abi.OpEncodingOffsets, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingOffsets(a[0], a[1])
		}},
		{abi.OpEncodingOverflowing, 2, 1, func(s *abi.Surface, a []uint64) uint64 {
			return s.EncodingOverflowing(a[0], a[1])
		}},
		{abi.OpFreeStringArray, 2, 0, func(s *abi.Surface, a []uint64) uint64 {
			s.FreeStringArray(a[0], a[1])
			return 0
		}},
		{abi.OpFreeEncodingArray, 2, 0, func(s *abi.Surface, a []uint64) uint64 {
			s.FreeEncodingArray(a[0], a[1])
			return 0
		}},
	}
}

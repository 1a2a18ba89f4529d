package abi

import (
	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/errors"
)

// Operation names as exported by the C and wasm surfaces.
const (
	OpFromPretrained      = "tokenizer_from_pretrained"
	OpFromBuffer          = "tokenizer_from_buffer"
	OpFromFile            = "tokenizer_from_file"
	OpFreeTokenizer       = "tokenizer_free"
	OpEncode              = "tokenizer_encode"
	OpDecode              = "tokenizer_decode"
	OpFreeString          = "free_rstring"
	OpEncodingFree        = "encoding_free"
	OpEncodingLength      = "encoding_get_length"
	OpEncodingIDs         = "encoding_get_ids"
	OpEncodingTokens      = "encoding_get_tokens"
	OpEncodingTypeIDs     = "encoding_get_type_ids"
	OpEncodingSpecialMask = "encoding_get_special_tokens_mask"
	OpEncodingAttention   = "encoding_get_attention_mask"
	OpEncodingOffsets     = "encoding_get_offsets"
	OpEncodingOverflowing = "encoding_get_overflowing"
	OpFreeStringArray     = "free_c_char_array"
	OpFreeEncodingArray   = "free_encoding_array"
)

// FromPretrained resolves a named model and returns a TokenizerHandle.
// params may be 0.
func (s *Surface) FromPretrained(name, params uint64) uint64 {
	return s.guard(OpFromPretrained, errors.PhaseLoad, func() (uint64, error) {
		n, err := s.readText(OpFromPretrained, "name", name)
		if err != nil {
			return 0, err
		}
		if n == "" {
			return 0, errors.InvalidInput(errors.PhaseLoad, "model name is empty")
		}
		p, err := s.readParams(OpFromPretrained, params)
		if err != nil {
			return 0, err
		}
		e, err := s.loader.FromPretrained(s.ctx, n, p)
		if err != nil {
			return 0, err
		}
		return s.newTokenizer(e)
	})
}

// FromBuffer loads a serialized tokenizer definition of n bytes at buf.
// n == 0 is a caller bug and panics.
func (s *Surface) FromBuffer(buf, n uint64) uint64 {
	if n == 0 {
		panic(OpFromBuffer + ": length must be greater than zero")
	}
	return s.guard(OpFromBuffer, errors.PhaseLoad, func() (uint64, error) {
		if buf == 0 {
			return 0, errors.NilPointer(errors.PhaseMarshal, OpFromBuffer, "buffer")
		}
		if err := checkCount(n, 1); err != nil {
			return 0, err
		}
		data, err := s.read(buf, n)
		if err != nil {
			return 0, err
		}
		e, err := s.loader.FromBytes(data)
		if err != nil {
			return 0, err
		}
		return s.newTokenizer(e)
	})
}

// FromFile loads a tokenizer definition from the path at addr.
func (s *Surface) FromFile(path uint64) uint64 {
	return s.guard(OpFromFile, errors.PhaseLoad, func() (uint64, error) {
		p, err := s.readText(OpFromFile, "path", path)
		if err != nil {
			return 0, err
		}
		e, err := s.loader.FromFile(p)
		if err != nil {
			return 0, err
		}
		return s.newTokenizer(e)
	})
}

// FreeTokenizer releases a TokenizerHandle. A null handle is a no-op.
func (s *Surface) FreeTokenizer(h uint64) {
	if h == 0 {
		return
	}
	s.guardVoid(OpFreeTokenizer, func() error {
		v, err := s.readWord(h)
		if err != nil {
			return err
		}
		id, err := handleID(v)
		if err != nil {
			return err
		}
		if _, ok := s.engines.Remove(id); !ok {
			return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
				Op(OpFreeTokenizer).
				Value(v).
				Detail("tokenizer handle %d is not live", v).
				Build()
		}
		s.free(block{addr: h, size: s.layout.HandleSize(), align: s.layout.PtrSize})
		return nil
	})
}

// Encode tokenizes the text at addr and returns a new CEncoding.
func (s *Surface) Encode(h, text uint64, addSpecialTokens bool) uint64 {
	return s.guard(OpEncode, errors.PhaseEncode, func() (uint64, error) {
		e, err := s.tokenizer(OpEncode, h)
		if err != nil {
			return 0, err
		}
		t, err := s.readText(OpEncode, "text", text)
		if err != nil {
			return 0, err
		}
		enc, err := e.Encode(t, addSpecialTokens)
		if err != nil {
			return 0, err
		}
		if err := enc.Validate(); err != nil {
			return 0, err
		}

		b, err := s.alloc(s.layout.EncodingSize(), s.layout.PtrSize)
		if err != nil {
			return 0, err
		}
		if err := s.materialize(enc, b.addr); err != nil {
			s.free(b)
			return 0, err
		}
		return b.addr, nil
	})
}

// Decode turns n uint32 ids at addr back into a transferred string.
// n == 0 is a caller bug and panics.
func (s *Surface) Decode(h, ids, n uint64, skipSpecialTokens bool) uint64 {
	if n == 0 {
		panic(OpDecode + ": length must be greater than zero")
	}
	return s.guard(OpDecode, errors.PhaseDecode, func() (uint64, error) {
		if ids == 0 {
			return 0, errors.NilPointer(errors.PhaseMarshal, OpDecode, "ids")
		}
		e, err := s.tokenizer(OpDecode, h)
		if err != nil {
			return 0, err
		}
		if err := checkCount(n, 4); err != nil {
			return 0, err
		}
		data, err := s.read(ids, 4*n)
		if err != nil {
			return 0, err
		}
		text, err := e.Decode(s.layout.ParseU32s(data), skipSpecialTokens)
		if err != nil {
			return 0, err
		}
		b, err := s.transferString(text)
		if err != nil {
			return 0, err
		}
		return b.addr, nil
	})
}

// FreeString releases a string returned by Decode. A null string is a no-op.
func (s *Surface) FreeString(str uint64) {
	if str == 0 {
		return
	}
	s.guardVoid(OpFreeString, func() error {
		return s.freeString(str)
	})
}

// newTokenizer registers e and writes a TokenizerHandle for it.
func (s *Surface) newTokenizer(e engine.Engine) (uint64, error) {
	id := s.engines.Insert(e)
	if id == 0 {
		return 0, errors.New(errors.PhaseLoad, errors.KindAllocation).
			Detail("handle table closed").
			Build()
	}

	b, err := s.alloc(s.layout.HandleSize(), s.layout.PtrSize)
	if err != nil {
		s.engines.Remove(id)
		return 0, err
	}
	if err := s.writeWords(b.addr, uint64(id)); err != nil {
		s.free(b)
		s.engines.Remove(id)
		return 0, err
	}
	return b.addr, nil
}

func (s *Surface) tokenizer(op string, h uint64) (engine.Engine, error) {
	if h == 0 {
		return nil, errors.NilPointer(errors.PhaseMarshal, op, "tokenizer")
	}
	v, err := s.readWord(h)
	if err != nil {
		return nil, err
	}
	id, err := handleID(v)
	if err != nil {
		return nil, err
	}
	e, ok := s.engines.Get(id)
	if !ok {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Op(op).
			Value(v).
			Detail("tokenizer handle %d is not live", v).
			Build()
	}
	return e, nil
}

package engine

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/errors"
)

// HF is an Engine backed by a HuggingFace tokenizer.json definition.
type HF struct {
	tk *tokenizer.Tokenizer
}

var _ Engine = (*HF)(nil)

// NewHF wraps an already constructed tokenizer.
func NewHF(tk *tokenizer.Tokenizer) *HF {
	return &HF{tk: tk}
}

// Encode tokenizes text, optionally adding the model's special tokens.
func (h *HF) Encode(text string, addSpecialTokens bool) (enc *Encoding, err error) {
	defer recoverInto(errors.PhaseEncode, "encode", &err)

	out, err := h.tk.EncodeSingle(text, addSpecialTokens)
	if err != nil {
		return nil, errors.Engine(errors.PhaseEncode, err)
	}
	return convert(out, nil)
}

// Decode turns ids back into text. Every id must be part of the vocabulary.
func (h *HF) Decode(ids []uint32, skipSpecialTokens bool) (text string, err error) {
	defer recoverInto(errors.PhaseDecode, "decode", &err)

	in := make([]int, len(ids))
	for i, id := range ids {
		if _, ok := h.tk.IdToToken(int(id)); !ok {
			return "", errors.UnknownID(id)
		}
		in[i] = int(id)
	}
	return h.tk.Decode(in, skipSpecialTokens), nil
}

func convert(src *tokenizer.Encoding, path []string) (*Encoding, error) {
	if src == nil {
		return nil, errors.InvalidData(errors.PhaseEncode, path, "engine returned no encoding")
	}

	n := len(src.Ids)
	dst := &Encoding{
		IDs:               make([]uint32, n),
		TypeIDs:           make([]uint32, n),
		SpecialTokensMask: make([]uint32, n),
		AttentionMask:     make([]uint32, n),
		Tokens:            make([]string, n),
		Offsets:           make([]Offset, n),
	}
	if len(src.TypeIds) != n || len(src.SpecialTokenMask) != n || len(src.AttentionMask) != n ||
		len(src.Tokens) != n || len(src.Offsets) != n {
		return nil, errors.InvalidData(errors.PhaseEncode, path, "engine returned mismatched sequence lengths")
	}

	for i := 0; i < n; i++ {
		var err error
		if dst.IDs[i], err = toU32(src.Ids[i], child(path, "ids")); err != nil {
			return nil, err
		}
		if dst.TypeIDs[i], err = toU32(src.TypeIds[i], child(path, "type_ids")); err != nil {
			return nil, err
		}
		if dst.SpecialTokensMask[i], err = toU32(src.SpecialTokenMask[i], child(path, "special_tokens_mask")); err != nil {
			return nil, err
		}
		if dst.AttentionMask[i], err = toU32(src.AttentionMask[i], child(path, "attention_mask")); err != nil {
			return nil, err
		}

		o := src.Offsets[i]
		if len(o) != 2 || o[0] < 0 || o[1] < o[0] {
			return nil, errors.InvalidData(errors.PhaseEncode, child(path, "offsets"),
				fmt.Sprintf("malformed offset %v at %d", o, i))
		}
		dst.Offsets[i] = Offset{Start: uint(o[0]), End: uint(o[1])}
	}
	copy(dst.Tokens, src.Tokens)

	if len(src.Overflowing) > 0 {
		dst.Overflowing = make([]*Encoding, len(src.Overflowing))
		for i := range src.Overflowing {
			frag, err := convert(&src.Overflowing[i], child(path, fmt.Sprintf("overflowing[%d]", i)))
			if err != nil {
				return nil, err
			}
			dst.Overflowing[i] = frag
		}
	}
	return dst, nil
}

func toU32(v int, path []string) (uint32, error) {
	if v < 0 || uint64(v) > 0xFFFFFFFF {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Path(path...).
			Value(v).
			Detail("value %d does not fit u32", v).
			Build()
	}
	return uint32(v), nil
}

// recoverInto converts an engine panic into an error.
func recoverInto(phase errors.Phase, op string, err *error) {
	if r := recover(); r != nil {
		Logger().Debug("engine panic recovered",
			zap.String("op", op),
			zap.Any("panic", r))
		*err = errors.Panic(phase, op, r)
	}
}

package engine

import (
	"fmt"

	"github.com/wippyai/tokenizer-ffi/errors"
)

// Offset is a half-open character span [Start, End) into the input text.
type Offset struct {
	Start uint
	End   uint
}

// Encoding is the result of tokenizing one input.
//
// IDs, Tokens, TypeIDs, SpecialTokensMask, AttentionMask and Offsets are
// parallel and always have the same length. Overflowing holds the fragments
// produced by truncation; each is a complete Encoding.
type Encoding struct {
	IDs               []uint32
	TypeIDs           []uint32
	SpecialTokensMask []uint32
	AttentionMask     []uint32
	Tokens            []string
	Offsets           []Offset
	Overflowing       []*Encoding
}

// Len returns the number of tokens.
func (e *Encoding) Len() int {
	return len(e.IDs)
}

// Validate checks the parallel-length invariant recursively.
func (e *Encoding) Validate() error {
	return e.validate(nil)
}

func (e *Encoding) validate(path []string) error {
	n := len(e.IDs)
	fields := []struct {
		name string
		len  int
	}{
		{"type_ids", len(e.TypeIDs)},
		{"special_tokens_mask", len(e.SpecialTokensMask)},
		{"attention_mask", len(e.AttentionMask)},
		{"tokens", len(e.Tokens)},
		{"offsets", len(e.Offsets)},
	}
	for _, f := range fields {
		if f.len != n {
			return errors.InvalidData(errors.PhaseEncode, child(path, f.name),
				fmt.Sprintf("length %d does not match %d ids", f.len, n))
		}
	}
	for i, o := range e.Overflowing {
		if o == nil {
			return errors.InvalidData(errors.PhaseEncode, child(path, fmt.Sprintf("overflowing[%d]", i)), "nil fragment")
		}
		if err := o.validate(child(path, fmt.Sprintf("overflowing[%d]", i))); err != nil {
			return err
		}
	}
	return nil
}

func child(path []string, name string) []string {
	return append(append([]string(nil), path...), name)
}

// Clone returns a deep copy, including nested overflow fragments.
func (e *Encoding) Clone() *Encoding {
	if e == nil {
		return nil
	}
	c := &Encoding{
		IDs:               append([]uint32(nil), e.IDs...),
		TypeIDs:           append([]uint32(nil), e.TypeIDs...),
		SpecialTokensMask: append([]uint32(nil), e.SpecialTokensMask...),
		AttentionMask:     append([]uint32(nil), e.AttentionMask...),
		Tokens:            append([]string(nil), e.Tokens...),
		Offsets:           append([]Offset(nil), e.Offsets...),
	}
	if len(e.Overflowing) > 0 {
		c.Overflowing = make([]*Encoding, len(e.Overflowing))
		for i, o := range e.Overflowing {
			c.Overflowing[i] = o.Clone()
		}
	}
	return c
}

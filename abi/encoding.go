package abi

import (
	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/errors"
)

// Borrowed views, in CEncoding field order after the id.
const (
	viewIDs = iota
	viewTypeIDs
	viewSpecialTokensMask
	viewAttentionMask
	viewOffsets
	numViews
)

// result is the table entry behind a CEncoding: the Go-side encoding plus
// the borrowed buffers allocated for it in foreign memory.
type result struct {
	enc   *engine.Encoding
	views [numViews]block
}

// materialize registers enc and writes a CEncoding for it at addr. The
// struct memory itself belongs to the caller; on failure nothing else stays
// allocated.
func (s *Surface) materialize(enc *engine.Encoding, addr uint64) (err error) {
	r := &result{enc: enc}
	defer func() {
		if err != nil {
			s.freeViews(r)
		}
	}()

	payloads := [numViews][]byte{
		viewIDs:               s.layout.U32s(enc.IDs),
		viewTypeIDs:           s.layout.U32s(enc.TypeIDs),
		viewSpecialTokensMask: s.layout.U32s(enc.SpecialTokensMask),
		viewAttentionMask:     s.layout.U32s(enc.AttentionMask),
	}
	offsets := make([]uint64, 0, 2*len(enc.Offsets))
	for _, o := range enc.Offsets {
		offsets = append(offsets, uint64(o.Start), uint64(o.End))
	}
	if payloads[viewOffsets], err = s.layout.Words(offsets...); err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "offset does not fit a word")
	}

	for i, p := range payloads {
		align := uint64(4)
		if i == viewOffsets {
			align = s.layout.PtrSize
		}
		b, err := s.allocWrite(p, align)
		if err != nil {
			return err
		}
		r.views[i] = b
	}

	id := s.encodings.Insert(r)
	if id == 0 {
		return errors.New(errors.PhaseMarshal, errors.KindAllocation).
			Detail("handle table closed").
			Build()
	}

	err = s.writeWords(addr,
		uint64(id),
		r.views[viewIDs].addr,
		r.views[viewTypeIDs].addr,
		r.views[viewSpecialTokensMask].addr,
		r.views[viewAttentionMask].addr,
		r.views[viewOffsets].addr,
		uint64(enc.Len()),
	)
	if err != nil {
		s.encodings.Remove(id)
		return err
	}
	return nil
}

func (s *Surface) freeViews(r *result) {
	for i := range r.views {
		s.free(r.views[i])
		r.views[i] = block{}
	}
}

// encoding looks up the result behind the CEncoding at addr.
func (s *Surface) encoding(op string, addr uint64) (*result, error) {
	if addr == 0 {
		return nil, errors.NilPointer(errors.PhaseMarshal, op, "encoding")
	}
	v, err := s.readWord(addr + encFieldID*s.layout.PtrSize)
	if err != nil {
		return nil, err
	}
	id, err := handleID(v)
	if err != nil {
		return nil, err
	}
	r, ok := s.encodings.Get(id)
	if !ok {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Op(op).
			Value(v).
			Detail("encoding handle %d is not live", v).
			Build()
	}
	return r, nil
}

// release drops the CEncoding at addr from the table and frees its borrowed
// buffers. The struct memory is left alone.
func (s *Surface) release(op string, addr uint64) error {
	v, err := s.readWord(addr + encFieldID*s.layout.PtrSize)
	if err != nil {
		return err
	}
	id, err := handleID(v)
	if err != nil {
		return err
	}
	r, ok := s.encodings.Remove(id)
	if !ok {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Op(op).
			Value(v).
			Detail("encoding handle %d is not live", v).
			Build()
	}
	s.freeViews(r)
	return nil
}

// EncodingLength returns the token count, or 0 for a null encoding.
func (s *Surface) EncodingLength(e uint64) uint64 {
	if e == 0 {
		return 0
	}
	return s.guard(OpEncodingLength, errors.PhaseMarshal, func() (uint64, error) {
		r, err := s.encoding(OpEncodingLength, e)
		if err != nil {
			return 0, err
		}
		return uint64(r.enc.Len()), nil
	})
}

// EncodingIDs returns the borrowed id array and writes its length to lenOut.
func (s *Surface) EncodingIDs(e, lenOut uint64) uint64 {
	return s.borrowed(OpEncodingIDs, e, lenOut, viewIDs)
}

// EncodingTypeIDs returns the borrowed type id array.
func (s *Surface) EncodingTypeIDs(e, lenOut uint64) uint64 {
	return s.borrowed(OpEncodingTypeIDs, e, lenOut, viewTypeIDs)
}

// EncodingSpecialTokensMask returns the borrowed special tokens mask.
func (s *Surface) EncodingSpecialTokensMask(e, lenOut uint64) uint64 {
	return s.borrowed(OpEncodingSpecialMask, e, lenOut, viewSpecialTokensMask)
}

// EncodingAttentionMask returns the borrowed attention mask.
func (s *Surface) EncodingAttentionMask(e, lenOut uint64) uint64 {
	return s.borrowed(OpEncodingAttention, e, lenOut, viewAttentionMask)
}

// EncodingOffsets returns the borrowed CTokenOffset array.
func (s *Surface) EncodingOffsets(e, lenOut uint64) uint64 {
	return s.borrowed(OpEncodingOffsets, e, lenOut, viewOffsets)
}

func (s *Surface) borrowed(op string, e, lenOut uint64, view int) uint64 {
	if e == 0 || lenOut == 0 {
		return 0
	}
	return s.guard(op, errors.PhaseMarshal, func() (uint64, error) {
		r, err := s.encoding(op, e)
		if err != nil {
			return 0, err
		}
		if err := s.writeWords(lenOut, uint64(r.enc.Len())); err != nil {
			return 0, err
		}
		return r.views[view].addr, nil
	})
}

// EncodingTokens copies the tokens into a transferred array of transferred
// strings. Release with FreeStringArray.
func (s *Surface) EncodingTokens(e, lenOut uint64) uint64 {
	if e == 0 || lenOut == 0 {
		return 0
	}
	return s.guard(OpEncodingTokens, errors.PhaseMarshal, func() (uint64, error) {
		r, err := s.encoding(OpEncodingTokens, e)
		if err != nil {
			return 0, err
		}

		tokens := r.enc.Tokens
		strs := make([]block, 0, len(tokens))
		ok := false
		defer func() {
			if !ok {
				for _, b := range strs {
					s.free(b)
				}
			}
		}()

		ptrs := make([]uint64, len(tokens))
		for i, t := range tokens {
			b, err := s.transferString(t)
			if err != nil {
				return 0, err
			}
			strs = append(strs, b)
			ptrs[i] = b.addr
		}

		arr, err := s.alloc(uint64(len(tokens))*s.layout.PtrSize, s.layout.PtrSize)
		if err != nil {
			return 0, err
		}
		if len(ptrs) > 0 {
			if err := s.writeWords(arr.addr, ptrs...); err != nil {
				s.free(arr)
				return 0, err
			}
		}
		if err := s.writeWords(lenOut, uint64(len(tokens))); err != nil {
			s.free(arr)
			return 0, err
		}
		ok = true
		return arr.addr, nil
	})
}

// EncodingOverflowing deep-copies the overflow fragments into a transferred
// array of CEncoding values. Every element is a full encoding usable with
// the accessors. Release with FreeEncodingArray.
func (s *Surface) EncodingOverflowing(e, lenOut uint64) uint64 {
	if e == 0 || lenOut == 0 {
		return 0
	}
	return s.guard(OpEncodingOverflowing, errors.PhaseMarshal, func() (uint64, error) {
		r, err := s.encoding(OpEncodingOverflowing, e)
		if err != nil {
			return 0, err
		}

		frags := r.enc.Overflowing
		stride := s.layout.EncodingSize()
		arr, err := s.alloc(uint64(len(frags))*stride, s.layout.PtrSize)
		if err != nil {
			return 0, err
		}

		done := 0
		rollback := func() {
			for i := 0; i < done; i++ {
				_ = s.release(OpEncodingOverflowing, arr.addr+uint64(i)*stride)
			}
			s.free(arr)
		}

		for i, f := range frags {
			if err := s.materialize(f.Clone(), arr.addr+uint64(i)*stride); err != nil {
				rollback()
				return 0, err
			}
			done++
		}
		if err := s.writeWords(lenOut, uint64(len(frags))); err != nil {
			rollback()
			return 0, err
		}
		return arr.addr, nil
	})
}

// FreeEncoding releases a CEncoding returned by Encode. Elements of an
// overflow array must go through FreeEncodingArray instead.
func (s *Surface) FreeEncoding(e uint64) {
	if e == 0 {
		return
	}
	s.guardVoid(OpEncodingFree, func() error {
		if err := s.release(OpEncodingFree, e); err != nil {
			return err
		}
		s.free(block{addr: e, size: s.layout.EncodingSize(), align: s.layout.PtrSize})
		return nil
	})
}

// FreeStringArray releases n transferred strings and the array holding them.
func (s *Surface) FreeStringArray(arr, n uint64) {
	if arr == 0 {
		return
	}
	s.guardVoid(OpFreeStringArray, func() error {
		if err := checkCount(n, s.layout.PtrSize); err != nil {
			return err
		}
		data, err := s.read(arr, n*s.layout.PtrSize)
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			p := s.layout.Word(data[i*s.layout.PtrSize:])
			if p == 0 {
				continue
			}
			if err := s.freeString(p); err != nil {
				return err
			}
		}
		s.free(block{addr: arr, size: max(n*s.layout.PtrSize, 1), align: s.layout.PtrSize})
		return nil
	})
}

// FreeEncodingArray releases n packed CEncoding values and their array.
// Nested overflow held on the Go side is released with its parent; arrays
// already extracted from an element stay owned by the caller.
func (s *Surface) FreeEncodingArray(arr, n uint64) {
	if arr == 0 {
		return
	}
	s.guardVoid(OpFreeEncodingArray, func() error {
		stride := s.layout.EncodingSize()
		if err := checkCount(n, stride); err != nil {
			return err
		}
		var firstErr error
		for i := uint64(0); i < n; i++ {
			if err := s.release(OpFreeEncodingArray, arr+i*stride); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		s.free(block{addr: arr, size: max(n*stride, 1), align: s.layout.PtrSize})
		return firstErr
	})
}

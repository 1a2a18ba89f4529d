package abi

import (
	"strings"
	"unicode/utf8"

	"github.com/wippyai/tokenizer-ffi/errors"
	"github.com/wippyai/tokenizer-ffi/resource"
)

// maxElems bounds caller-supplied element counts before they are turned
// into byte lengths.
const maxElems = 1 << 31

// block is one allocation in the foreign address space.
type block struct {
	addr  uint64
	size  uint64
	align uint64
}

// alloc allocates at least one byte so that empty buffers still have a
// distinct, non-null address.
func (s *Surface) alloc(size, align uint64) (block, error) {
	if size == 0 {
		size = 1
	}
	addr, err := s.space.Alloc(size, align)
	if err != nil {
		return block{}, errors.New(errors.PhaseMarshal, errors.KindAllocation).
			Cause(err).
			Detail("failed to allocate %d bytes (align %d)", size, align).
			Build()
	}
	if addr == 0 {
		return block{}, errors.AllocationFailed(errors.PhaseMarshal, size, align)
	}
	return block{addr: addr, size: size, align: align}, nil
}

func (s *Surface) free(b block) {
	if b.addr != 0 {
		s.space.Free(b.addr, b.size, b.align)
	}
}

// allocWrite allocates a buffer holding data.
func (s *Surface) allocWrite(data []byte, align uint64) (block, error) {
	b, err := s.alloc(uint64(len(data)), align)
	if err != nil {
		return block{}, err
	}
	if len(data) > 0 {
		if err := s.space.Write(b.addr, data); err != nil {
			s.free(b)
			return block{}, errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "failed to fill buffer")
		}
	}
	return b, nil
}

func (s *Surface) read(addr, length uint64) ([]byte, error) {
	data, err := s.space.Read(addr, length)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "failed to read memory")
	}
	return data, nil
}

func (s *Surface) readWord(addr uint64) (uint64, error) {
	data, err := s.read(addr, s.layout.PtrSize)
	if err != nil {
		return 0, err
	}
	return s.layout.Word(data), nil
}

func (s *Surface) writeWords(addr uint64, vs ...uint64) error {
	data, err := s.layout.Words(vs...)
	if err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "value does not fit a word")
	}
	if err := s.space.Write(addr, data); err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "failed to write memory")
	}
	return nil
}

// readText reads a required NUL-terminated UTF-8 argument.
func (s *Surface) readText(op, name string, addr uint64) (string, error) {
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseMarshal, op, name)
	}
	data, err := s.space.ReadCString(addr)
	if err != nil {
		return "", errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "failed to read "+name)
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseMarshal, []string{name}, data)
	}
	return string(data), nil
}

// transferString copies str into a new NUL-terminated allocation owned by
// the caller.
func (s *Surface) transferString(str string) (block, error) {
	if strings.IndexByte(str, 0) >= 0 {
		return block{}, errors.InvalidData(errors.PhaseMarshal, nil, "string contains an interior NUL byte")
	}
	data := make([]byte, len(str)+1)
	copy(data, str)
	return s.allocWrite(data, 1)
}

// freeString releases a string produced by transferString.
func (s *Surface) freeString(addr uint64) error {
	data, err := s.space.ReadCString(addr)
	if err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindOutOfBounds, err, "failed to measure string")
	}
	s.free(block{addr: addr, size: uint64(len(data)) + 1, align: 1})
	return nil
}

// handleID converts a word read from foreign memory into a table handle.
func handleID(v uint64) (resource.Handle, error) {
	if v == 0 || v > 0xFFFFFFFF {
		return 0, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Value(v).
			Detail("invalid handle id %d", v).
			Build()
	}
	return resource.Handle(v), nil
}

func checkCount(n uint64, elemSize uint64) error {
	if n > maxElems || n*elemSize/elemSize != n {
		return errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
			Value(n).
			Detail("element count %d too large", n).
			Build()
	}
	return nil
}

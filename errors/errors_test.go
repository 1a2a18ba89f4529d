package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseMarshal,
				Kind:   KindNilPointer,
				Path:   []string{"params", "revision"},
				Op:     "tokenizer_from_pretrained",
				Detail: "cannot read",
			},
			contains: []string{"[marshal]", "nil_pointer", "params.revision", "tokenizer_from_pretrained", "cannot read"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindUnknownID,
			},
			contains: []string{"[decode]", "unknown_id"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseFetch,
				Kind:   KindNetwork,
				Detail: "download failed",
				Cause:  errors.New("connection refused"),
			},
			contains: []string{"[fetch]", "network", "download failed", "caused by", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Phase: PhaseEncode, Kind: KindEngine, Detail: "x"}

	if !errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindEngine}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindEngine}) {
		t.Error("different phase should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindPanic}) {
		t.Error("different kind should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("underlying")
	err := New(PhaseMarshal, KindOutOfBounds).
		Path("encoding", "ids").
		Op("encoding_get_ids").
		Value(uint64(42)).
		Cause(cause).
		Detail("length %d exceeds memory", 7).
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if len(err.Path) != 2 || err.Path[0] != "encoding" || err.Path[1] != "ids" {
		t.Errorf("Path = %v, want [encoding ids]", err.Path)
	}
	if err.Op != "encoding_get_ids" {
		t.Errorf("Op = %v, want encoding_get_ids", err.Op)
	}
	if err.Value != uint64(42) {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "length 7 exceeds memory" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseMarshal, []string{"text"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %v, should contain byte preview", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseMarshal, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMarshal, 0x10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint64(0x10) {
			t.Errorf("Value = %v, want 0x10", err.Value)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseEncode, "tokenizer_encode", "text")
		if err.Kind != KindNilPointer {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNilPointer)
		}
		if err.Op != "tokenizer_encode" {
			t.Errorf("Op = %v", err.Op)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		err := UnknownID(99999)
		if err.Phase != PhaseDecode || err.Kind != KindUnknownID {
			t.Errorf("got [%v] %v", err.Phase, err.Kind)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		err := Panic(PhaseEncode, "tokenizer_encode", "index out of range")
		if err.Kind != KindPanic {
			t.Errorf("Kind = %v, want %v", err.Kind, KindPanic)
		}
		if !strings.Contains(err.Error(), "index out of range") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Engine", func(t *testing.T) {
		cause := errors.New("bad model")
		err := Engine(PhaseLoad, cause)
		if !errors.Is(err, cause) {
			t.Error("Engine error should wrap cause")
		}
	})
}

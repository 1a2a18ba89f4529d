package abi

import (
	"os"
	"testing"

	"github.com/wippyai/tokenizer-ffi/engine"
)

func TestSurface_HFRoundTrip(t *testing.T) {
	def, err := os.ReadFile("../engine/testdata/tokenizer.json")
	if err != nil {
		t.Fatal(err)
	}

	arena := NewArena()
	s := New(arena, Native, NewTable(), engine.NewLoader(nil))
	r := s.Reader()

	buf, _ := arena.Put(def, 1)
	tk := s.FromBuffer(buf, uint64(len(def)))
	if tk == 0 {
		t.Fatal("FromBuffer returned null for a valid definition")
	}

	text, _ := arena.PutCString("Hello world")
	enc := s.Encode(tk, text, true)
	if enc == 0 {
		t.Fatal("Encode returned null")
	}
	n := s.EncodingLength(enc)
	if n == 0 {
		t.Fatal("EncodingLength = 0")
	}

	lenOut, _ := arena.Alloc(8, 8)
	lens := map[string]uint64{}
	for name, fn := range map[string]func(e, l uint64) uint64{
		"ids":       s.EncodingIDs,
		"type_ids":  s.EncodingTypeIDs,
		"special":   s.EncodingSpecialTokensMask,
		"attention": s.EncodingAttentionMask,
		"offsets":   s.EncodingOffsets,
	} {
		if fn(enc, lenOut) == 0 {
			t.Fatalf("%s returned null", name)
		}
		lens[name], _ = r.Word(lenOut)
	}
	tokArr := s.EncodingTokens(enc, lenOut)
	lens["tokens"], _ = r.Word(lenOut)
	for name, l := range lens {
		if l != n {
			t.Fatalf("%s has length %d, want %d", name, l, n)
		}
	}

	toks, err := r.Strings(tokArr, n)
	if err != nil {
		t.Fatalf("tokens unreadable: %v", err)
	}
	if toks[0] != "[CLS]" || toks[n-1] != "[SEP]" {
		t.Fatalf("tokens = %v", toks)
	}
	s.FreeStringArray(tokArr, n)

	out := s.Decode(tk, s.EncodingIDs(enc, lenOut), n, true)
	if out == 0 {
		t.Fatal("Decode returned null")
	}
	// The normalizer lowercases, so the round trip is approximate
	if got, _ := r.CString(out); got != "hello world" {
		t.Fatalf("Decode = %q", got)
	}
	s.FreeString(out)

	unknown, _ := arena.Put(Native.U32s([]uint32{5, 4242}), 4)
	if s.Decode(tk, unknown, 2, false) != 0 {
		t.Fatal("Decode of an unknown id should return null")
	}

	garbage, _ := arena.Put([]byte("{not json"), 1)
	if s.FromBuffer(garbage, 9) != 0 {
		t.Fatal("FromBuffer(garbage) should return null")
	}

	s.FreeEncoding(enc)
	s.FreeTokenizer(tk)
	if s.Table().Len() != 0 {
		t.Fatalf("%d handles leaked", s.Table().Len())
	}
	if err := arena.Err(); err != nil {
		t.Fatal(err)
	}
}

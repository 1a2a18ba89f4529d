package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"

	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/cabi"
	"github.com/wippyai/tokenizer-ffi/hub"
)

const fixture = "../../engine/testdata/tokenizer.json"

var cacheDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "libtokenizers-cache-*")
	if err != nil {
		panic(err)
	}
	cacheDir = dir
	os.Setenv("TOKENIZERS_CACHE", dir)
	os.Setenv("HF_HUB_OFFLINE", "1")
	os.Unsetenv("TOKENIZERS_FFI_CONFIG")

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// cBytes copies data to the C heap for the duration of the test.
func cBytes(t *testing.T, data []byte) uint64 {
	t.Helper()
	var heap cabi.Heap
	p, err := heap.Alloc(uint64(len(data)), 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := heap.Write(p, data); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { heap.Free(p, 0, 0) })
	return p
}

func cStr(t *testing.T, s string) uint64 {
	return cBytes(t, append([]byte(s), 0))
}

func reader() abi.Reader {
	return abi.Reader{Memory: cabi.Heap{}, Layout: abi.Native}
}

func checkNoHandles(t *testing.T) {
	t.Helper()
	if n := surface().Table().Len(); n != 0 {
		t.Fatalf("%d handles still live", n)
	}
}

func TestExports_NullArguments(t *testing.T) {
	if tokenizer_from_pretrained(nil, nil) != nil {
		t.Error("tokenizer_from_pretrained(NULL) != NULL")
	}
	if tokenizer_from_buffer(nil, 1) != nil {
		t.Error("tokenizer_from_buffer(NULL, 1) != NULL")
	}
	if tokenizer_from_file(nil) != nil {
		t.Error("tokenizer_from_file(NULL) != NULL")
	}
	if tokenizer_encode(nil, nil, true) != nil {
		t.Error("tokenizer_encode(NULL) != NULL")
	}
	if tokenizer_decode(nil, nil, 1, true) != nil {
		t.Error("tokenizer_decode(NULL) != NULL")
	}
	if encoding_get_length(nil) != 0 {
		t.Error("encoding_get_length(NULL) != 0")
	}
	if encoding_get_ids(nil, nil) != nil ||
		encoding_get_type_ids(nil, nil) != nil ||
		encoding_get_special_tokens_mask(nil, nil) != nil ||
		encoding_get_attention_mask(nil, nil) != nil ||
		encoding_get_offsets(nil, nil) != nil ||
		encoding_get_tokens(nil, nil) != nil ||
		encoding_get_overflowing(nil, nil) != nil {
		t.Error("accessor on NULL encoding != NULL")
	}

	tokenizer_free(nil)
	free_rstring(nil)
	encoding_free(nil)
	free_c_char_array(nil, 3)
	free_encoding_array(nil, 3)

	checkNoHandles(t)
}

func TestExports_RoundTrip(t *testing.T) {
	r := reader()

	tk := tokenizer_from_file(cString(cStr(t, fixture)))
	if tk == nil {
		t.Fatal("tokenizer_from_file returned NULL")
	}

	enc := tokenizer_encode(tk, cString(cStr(t, "Hello world")), true)
	if enc == nil {
		t.Fatal("tokenizer_encode returned NULL")
	}
	if n := encoding_get_length(enc); n != 4 {
		t.Fatalf("encoding_get_length = %d, want 4", n)
	}
	if uint64(enc.length) != 4 {
		t.Fatalf("CEncoding.length = %d, want 4", enc.length)
	}

	lenOut := cBytes(t, make([]byte, 8))
	ids := encoding_get_ids(enc, uintptrPtr(lenOut))
	if ids == nil || unsafe.Pointer(ids) != unsafe.Pointer(enc.ids) {
		t.Fatal("encoding_get_ids does not match CEncoding.ids")
	}
	if n, _ := r.Word(lenOut); n != 4 {
		t.Fatalf("length out-parameter = %d, want 4", n)
	}
	got, err := r.U32s(addr(unsafe.Pointer(ids)), 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{2, 5, 6, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}

	offs := unsafe.Slice(encoding_get_offsets(enc, uintptrPtr(lenOut)), 4)
	if offs[1].start != 0 || offs[1].end != 5 || offs[2].start != 6 || offs[2].end != 11 {
		t.Fatalf("offsets = %+v", offs)
	}

	toks := encoding_get_tokens(enc, uintptrPtr(lenOut))
	strs, err := r.Strings(addr(unsafe.Pointer(toks)), 4)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(strs, " ") != "[CLS] hello world [SEP]" {
		t.Fatalf("tokens = %q", strs)
	}
	free_c_char_array(toks, 4)

	over := encoding_get_overflowing(enc, uintptrPtr(lenOut))
	if over == nil {
		t.Fatal("encoding_get_overflowing returned NULL")
	}
	if n, _ := r.Word(lenOut); n != 0 {
		t.Fatalf("overflow count = %d, want 0", n)
	}
	free_encoding_array(over, 0)

	text := tokenizer_decode(tk, uintPtr(addr(unsafe.Pointer(ids))), 4, true)
	if text == nil {
		t.Fatal("tokenizer_decode returned NULL")
	}
	s, err := r.CString(addr(unsafe.Pointer(text)))
	if err != nil || s != "hello world" {
		t.Fatalf("decode = %q, %v", s, err)
	}
	free_rstring(text)

	encoding_free(enc)
	tokenizer_free(tk)
	checkNoHandles(t)
}

func TestExports_FromBuffer(t *testing.T) {
	def, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}

	tk := tokenizer_from_buffer(bytePtr(cBytes(t, def)), size(len(def)))
	if tk == nil {
		t.Fatal("tokenizer_from_buffer returned NULL")
	}
	tokenizer_free(tk)

	garbage := []byte("not a tokenizer")
	if tokenizer_from_buffer(bytePtr(cBytes(t, garbage)), size(len(garbage))) != nil {
		t.Fatal("tokenizer_from_buffer accepted garbage")
	}
	checkNoHandles(t)
}

func TestExports_FromPretrainedCache(t *testing.T) {
	def, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := hub.CachePath(cacheDir, "acme/bert", "main")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, def, 0o644); err != nil {
		t.Fatal(err)
	}

	name := cString(cStr(t, "acme/bert"))
	tk := tokenizer_from_pretrained(name, nil)
	if tk == nil {
		t.Fatal("cached model not loaded")
	}
	tokenizer_free(tk)

	words, err := abi.Native.Words(cStr(t, "v2"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if tokenizer_from_pretrained(name, paramsPtr(cBytes(t, words))) != nil {
		t.Fatal("uncached revision loaded while offline")
	}
	if tokenizer_from_pretrained(cString(cStr(t, "acme/missing")), nil) != nil {
		t.Fatal("uncached model loaded while offline")
	}
	checkNoHandles(t)
}

// crashEnv selects the contract violation a child test process commits.
const crashEnv = "LIBTOKENIZERS_CRASH"

func expectCrash(t *testing.T, test, mode string) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^"+test+"$")
	cmd.Env = append(os.Environ(), crashEnv+"="+mode)
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("child did not crash: err=%v\n%s", err, out)
	}
	if !strings.Contains(string(out), "length must be greater than zero") {
		t.Fatalf("unexpected crash output:\n%s", out)
	}
}

func TestExports_ZeroLengthDecodeAborts(t *testing.T) {
	if os.Getenv(crashEnv) == "decode" {
		tokenizer_decode(nil, uintPtr(cBytes(t, []byte{1, 0, 0, 0})), 0, false)
		return
	}
	expectCrash(t, "TestExports_ZeroLengthDecodeAborts", "decode")
}

func TestExports_ZeroLengthFromBufferAborts(t *testing.T) {
	if os.Getenv(crashEnv) == "from_buffer" {
		tokenizer_from_buffer(bytePtr(cBytes(t, []byte("{}"))), 0)
		return
	}
	expectCrash(t, "TestExports_ZeroLengthFromBufferAborts", "from_buffer")
}

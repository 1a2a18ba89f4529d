package abi

import (
	"context"
	"fmt"
	"strings"

	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/hub"
)

// wordEngine assigns ids from a fixed vocabulary by whitespace splitting.
// Inputs longer than maxLen words are truncated into overflow fragments,
// each of which overflows again if still too long.
type wordEngine struct {
	vocab  map[string]uint32
	words  []string
	maxLen int
}

func newWordEngine(maxLen int, words ...string) *wordEngine {
	e := &wordEngine{vocab: make(map[string]uint32), maxLen: maxLen}
	for _, w := range append([]string{"[CLS]", "[SEP]", "[UNK]"}, words...) {
		e.vocab[w] = uint32(len(e.words))
		e.words = append(e.words, w)
	}
	return e
}

func (e *wordEngine) Encode(text string, addSpecialTokens bool) (*engine.Encoding, error) {
	if strings.Contains(text, "boom") {
		panic("engine exploded")
	}
	var toks []string
	var offs []engine.Offset
	pos := 0
	for _, f := range strings.Fields(text) {
		start := strings.Index(text[pos:], f) + pos
		toks = append(toks, f)
		offs = append(offs, engine.Offset{Start: uint(start), End: uint(start + len(f))})
		pos = start + len(f)
	}
	return e.build(toks, offs, addSpecialTokens), nil
}

func (e *wordEngine) build(toks []string, offs []engine.Offset, special bool) *engine.Encoding {
	var rest []string
	var restOffs []engine.Offset
	if e.maxLen > 0 && len(toks) > e.maxLen {
		rest, restOffs = toks[e.maxLen:], offs[e.maxLen:]
		toks, offs = toks[:e.maxLen], offs[:e.maxLen]
	}

	enc := &engine.Encoding{}
	add := func(tok string, off engine.Offset, isSpecial uint32) {
		id, ok := e.vocab[tok]
		if !ok {
			id = e.vocab["[UNK]"]
		}
		enc.IDs = append(enc.IDs, id)
		enc.Tokens = append(enc.Tokens, tok)
		enc.TypeIDs = append(enc.TypeIDs, 0)
		enc.SpecialTokensMask = append(enc.SpecialTokensMask, isSpecial)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.Offsets = append(enc.Offsets, off)
	}
	if special {
		add("[CLS]", engine.Offset{}, 1)
	}
	for i, t := range toks {
		add(t, offs[i], 0)
	}
	if special {
		add("[SEP]", engine.Offset{}, 1)
	}
	if len(rest) > 0 {
		enc.Overflowing = []*engine.Encoding{e.build(rest, restOffs, special)}
	}
	return enc
}

func (e *wordEngine) Decode(ids []uint32, skipSpecialTokens bool) (string, error) {
	var out []string
	for _, id := range ids {
		if int(id) >= len(e.words) {
			return "", fmt.Errorf("unknown id %d", id)
		}
		w := e.words[id]
		if skipSpecialTokens && strings.HasPrefix(w, "[") {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " "), nil
}

// fakeLoader hands out wordEngines and records pretrained params.
type fakeLoader struct {
	engine *wordEngine
	name   string
	params hub.Params
}

func (l *fakeLoader) FromPretrained(_ context.Context, name string, p hub.Params) (engine.Engine, error) {
	l.name, l.params = name, p
	if name != "org/model" {
		return nil, fmt.Errorf("model %q not found", name)
	}
	return l.engine, nil
}

func (l *fakeLoader) FromBytes(data []byte) (engine.Engine, error) {
	if string(data) != "words" {
		return nil, fmt.Errorf("malformed definition")
	}
	return l.engine, nil
}

func (l *fakeLoader) FromFile(path string) (engine.Engine, error) {
	if path != "words.json" {
		return nil, fmt.Errorf("no such file %q", path)
	}
	return l.engine, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/engine"
)

// source selects where a tokenizer comes from.
type source struct {
	File       string
	Pretrained string
	Revision   string
	Token      string
}

func (src source) validate() error {
	switch {
	case src.File == "" && src.Pretrained == "":
		return fmt.Errorf("one of --file or --pretrained is required")
	case src.File != "" && src.Pretrained != "":
		return fmt.Errorf("--file and --pretrained are mutually exclusive")
	}
	return nil
}

func (src source) String() string {
	if src.File != "" {
		return src.File
	}
	if src.Revision != "" {
		return src.Pretrained + "@" + src.Revision
	}
	return src.Pretrained
}

// session drives one tokenizer through the same boundary calls a C caller
// makes, over an in-process arena.
type session struct {
	arena  *abi.Arena
	s      *abi.Surface
	r      abi.Reader
	tk     uint64
	name   string
	inputs []input
}

type input struct {
	addr, size, align uint64
}

// encoded is a CEncoding read back into Go values.
type encoded struct {
	IDs               []uint32   `json:"ids"`
	Tokens            []string   `json:"tokens"`
	TypeIDs           []uint32   `json:"type_ids"`
	Offsets           [][2]uint  `json:"offsets"`
	SpecialTokensMask []uint32   `json:"special_tokens_mask"`
	AttentionMask     []uint32   `json:"attention_mask"`
	Overflowing       []*encoded `json:"overflowing,omitempty"`
}

func openSession(ctx context.Context, loader engine.Loader, src source) (*session, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}

	arena := abi.NewArena()
	s := abi.New(arena, abi.Native, abi.NewTable(), loader).With(ctx, arena)
	sess := &session{arena: arena, s: s, r: s.Reader(), name: src.String()}
	defer sess.releaseInputs()

	if src.File != "" {
		path, err := sess.cstr(src.File)
		if err != nil {
			return nil, err
		}
		sess.tk = s.FromFile(path)
	} else {
		name, err := sess.cstr(src.Pretrained)
		if err != nil {
			return nil, err
		}
		params, err := sess.params(src.Revision, src.Token)
		if err != nil {
			return nil, err
		}
		sess.tk = s.FromPretrained(name, params)
	}
	if sess.tk == 0 {
		return nil, fmt.Errorf("cannot load tokenizer %s", src)
	}
	return sess, nil
}

func (sess *session) put(data []byte, align uint64) (uint64, error) {
	addr, err := sess.arena.Put(data, align)
	if err != nil {
		return 0, err
	}
	sess.inputs = append(sess.inputs, input{addr: addr, size: max(uint64(len(data)), 1), align: align})
	return addr, nil
}

func (sess *session) cstr(s string) (uint64, error) {
	return sess.put(append([]byte(s), 0), 1)
}

// params builds a CFromPretrainedParameters block; empty fields stay null.
func (sess *session) params(revision, token string) (uint64, error) {
	if revision == "" && token == "" {
		return 0, nil
	}
	var rev, tok uint64
	var err error
	if revision != "" {
		if rev, err = sess.cstr(revision); err != nil {
			return 0, err
		}
	}
	if token != "" {
		if tok, err = sess.cstr(token); err != nil {
			return 0, err
		}
	}
	words, err := sess.s.Layout().Words(rev, tok)
	if err != nil {
		return 0, err
	}
	return sess.put(words, sess.s.Layout().PtrSize)
}

func (sess *session) releaseInputs() {
	for _, in := range sess.inputs {
		sess.arena.Free(in.addr, in.size, in.align)
	}
	sess.inputs = nil
}

func (sess *session) encode(text string, addSpecialTokens bool) (*encoded, error) {
	defer sess.releaseInputs()

	t, err := sess.cstr(text)
	if err != nil {
		return nil, err
	}
	enc := sess.s.Encode(sess.tk, t, addSpecialTokens)
	if enc == 0 {
		return nil, fmt.Errorf("%s failed", abi.OpEncode)
	}
	defer sess.s.FreeEncoding(enc)
	return sess.read(enc)
}

// read copies every field of the CEncoding at addr, releasing the
// transferred arrays it has to request along the way.
func (sess *session) read(enc uint64) (*encoded, error) {
	lenOut, err := sess.put(make([]byte, sess.s.Layout().PtrSize), sess.s.Layout().PtrSize)
	if err != nil {
		return nil, err
	}
	n := sess.s.EncodingLength(enc)
	out := &encoded{}

	u32s := []struct {
		get func(e, lenOut uint64) uint64
		dst *[]uint32
	}{
		{sess.s.EncodingIDs, &out.IDs},
		{sess.s.EncodingTypeIDs, &out.TypeIDs},
		{sess.s.EncodingSpecialTokensMask, &out.SpecialTokensMask},
		{sess.s.EncodingAttentionMask, &out.AttentionMask},
	}
	for _, f := range u32s {
		if *f.dst, err = sess.r.U32s(f.get(enc, lenOut), n); err != nil {
			return nil, err
		}
	}

	offs, err := sess.r.Offsets(sess.s.EncodingOffsets(enc, lenOut), n)
	if err != nil {
		return nil, err
	}
	for _, o := range offs {
		out.Offsets = append(out.Offsets, [2]uint{o.Start, o.End})
	}

	toks := sess.s.EncodingTokens(enc, lenOut)
	if toks == 0 {
		return nil, fmt.Errorf("%s failed", abi.OpEncodingTokens)
	}
	out.Tokens, err = sess.r.Strings(toks, n)
	sess.s.FreeStringArray(toks, n)
	if err != nil {
		return nil, err
	}

	over := sess.s.EncodingOverflowing(enc, lenOut)
	if over == 0 {
		return nil, fmt.Errorf("%s failed", abi.OpEncodingOverflowing)
	}
	count, err := sess.r.Word(lenOut)
	if err != nil {
		sess.s.FreeEncodingArray(over, 0)
		return nil, err
	}
	defer sess.s.FreeEncodingArray(over, count)

	stride := sess.s.Layout().EncodingSize()
	for i := uint64(0); i < count; i++ {
		child, err := sess.read(over + i*stride)
		if err != nil {
			return nil, err
		}
		out.Overflowing = append(out.Overflowing, child)
	}
	return out, nil
}

func (sess *session) decode(ids []uint32, skipSpecialTokens bool) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("no ids to decode")
	}
	defer sess.releaseInputs()

	p, err := sess.put(sess.s.Layout().U32s(ids), 4)
	if err != nil {
		return "", err
	}
	text := sess.s.Decode(sess.tk, p, uint64(len(ids)), skipSpecialTokens)
	if text == 0 {
		return "", fmt.Errorf("%s failed", abi.OpDecode)
	}
	defer sess.s.FreeString(text)
	return sess.r.CString(text)
}

// Close frees the tokenizer and reports any allocation the session leaked.
func (sess *session) Close() error {
	sess.releaseInputs()
	sess.s.FreeTokenizer(sess.tk)
	sess.tk = 0
	if err := sess.arena.Err(); err != nil {
		return err
	}
	if n := sess.arena.Live(); n != 0 {
		return fmt.Errorf("%d boundary allocations leaked", n)
	}
	if n := sess.s.Table().Len(); n != 0 {
		return fmt.Errorf("%d handles leaked", n)
	}
	return nil
}

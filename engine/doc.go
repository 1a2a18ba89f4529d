// Package engine provides the tokenization capability behind the boundary.
//
// An Engine encodes text into an Encoding and decodes token ids back into
// text. The HF implementation is backed by github.com/sugarme/tokenizer and
// reads HuggingFace tokenizer.json definitions.
//
// # Loading
//
// HFLoader builds engines from three sources:
//
//	l := engine.NewLoader(hub.New(hub.Config{}))
//	e, err := l.FromFile("tokenizer.json")
//	e, err := l.FromBytes(data)
//	e, err := l.FromPretrained(ctx, "bert-base-uncased", hub.Params{Revision: "main"})
//
// # Encodings
//
// Encoding holds parallel sequences (ids, type ids, masks, tokens, offsets)
// plus truncation overflow fragments. Validate checks the sequences agree in
// length; Clone deep-copies, nested fragments included.
//
// Panics raised by the underlying tokenizer are recovered and returned as
// errors of kind panic.
package engine

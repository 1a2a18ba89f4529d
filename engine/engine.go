package engine

import (
	"context"

	"github.com/wippyai/tokenizer-ffi/hub"
)

// Engine turns text into encodings and token ids back into text.
// A single Engine is not required to be safe for concurrent use.
type Engine interface {
	Encode(text string, addSpecialTokens bool) (*Encoding, error)
	Decode(ids []uint32, skipSpecialTokens bool) (string, error)
}

// Resolver maps a pretrained model name to a local tokenizer definition.
type Resolver interface {
	Resolve(ctx context.Context, name string, p hub.Params) (string, error)
}

// Loader constructs engines from the three supported sources.
type Loader interface {
	FromPretrained(ctx context.Context, name string, p hub.Params) (Engine, error)
	FromBytes(data []byte) (Engine, error)
	FromFile(path string) (Engine, error)
}

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/errors"
	"github.com/wippyai/tokenizer-ffi/hub"
)

// HFLoader builds HF engines from files, in-memory definitions and named
// pretrained models.
type HFLoader struct {
	resolver Resolver
}

var _ Loader = (*HFLoader)(nil)

// NewLoader creates a loader. A nil resolver disables FromPretrained.
func NewLoader(r Resolver) *HFLoader {
	return &HFLoader{resolver: r}
}

// FromPretrained resolves name through the hub and loads the result.
func (l *HFLoader) FromPretrained(ctx context.Context, name string, p hub.Params) (Engine, error) {
	if l.resolver == nil {
		return nil, errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			Detail("no pretrained resolver configured").
			Build()
	}
	path, err := l.resolver.Resolve(ctx, name, p)
	if err != nil {
		return nil, err
	}
	return l.FromFile(path)
}

// FromFile loads a tokenizer.json definition from path.
func (l *HFLoader) FromFile(path string) (e Engine, err error) {
	defer recoverInto(errors.PhaseLoad, "from_file", &err)

	if path == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "cannot stat tokenizer file")
	}
	if info.IsDir() {
		return nil, errors.InvalidInput(errors.PhaseLoad, path+" is a directory")
	}

	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, errors.Load("failed to load tokenizer", err)
	}
	Logger().Debug("tokenizer loaded", zap.String("path", path))
	return NewHF(tk), nil
}

// FromBytes loads a tokenizer.json definition held in memory.
func (l *HFLoader) FromBytes(data []byte) (Engine, error) {
	if len(data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty tokenizer definition")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Load("tokenizer definition is not a JSON object", err)
	}
	if _, ok := probe["model"]; !ok {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"model"}, "tokenizer definition has no model")
	}

	return l.fromReader(bytes.NewReader(data))
}

func (l *HFLoader) fromReader(r io.Reader) (e Engine, err error) {
	defer recoverInto(errors.PhaseLoad, "from_bytes", &err)

	tk, err := pretrained.FromReader(r)
	if err != nil {
		return nil, errors.Load("failed to load tokenizer", err)
	}
	Logger().Debug("tokenizer loaded from memory")
	return NewHF(tk), nil
}

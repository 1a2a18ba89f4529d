package abi

import (
	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/hub"
)

// readParams converts a nullable CFromPretrainedParameters block into hub
// params. Absent or unreadable fields take their defaults: revision "main"
// and no token.
func (s *Surface) readParams(op string, addr uint64) (hub.Params, error) {
	p := hub.Params{Revision: hub.DefaultRevision}
	if addr == 0 {
		return p, nil
	}

	data, err := s.read(addr, s.layout.ParamsSize())
	if err != nil {
		return p, err
	}
	revAddr := s.layout.Word(data)
	tokAddr := s.layout.Word(data[s.layout.PtrSize:])

	if revAddr != 0 {
		rev, err := s.readText(op, "revision", revAddr)
		switch {
		case err != nil:
			Logger().Debug("ignoring unreadable revision", zap.String("op", op), zap.Error(err))
		case rev != "":
			p.Revision = rev
		}
	}
	if tokAddr != 0 {
		tok, err := s.readText(op, "token", tokAddr)
		if err != nil {
			Logger().Debug("ignoring unreadable token", zap.String("op", op), zap.Error(err))
		} else {
			p.Token = tok
		}
	}
	return p, nil
}

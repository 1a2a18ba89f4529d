package abi

import (
	"context"

	"go.uber.org/zap"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/errors"
	"github.com/wippyai/tokenizer-ffi/resource"
)

// Surface implements every boundary operation against one foreign address
// space. Arguments and results are raw addresses in that space; 0 is null.
//
// A Surface never returns an error or lets a panic escape. Failures are
// logged at debug level and collapse to a 0 result. The only exceptions are
// the documented contract violations (zero-length decode and zero-length
// from_buffer), which panic.
type Surface struct {
	ctx       context.Context
	space     tokenizerffi.Space
	loader    engine.Loader
	table     *resource.UnifiedTable
	engines   resource.Typed[engine.Engine]
	encodings resource.Typed[*result]
	layout    Layout
}

// New creates a surface. Handles live in table, which may be shared between
// surfaces over the same address space.
func New(space tokenizerffi.Space, layout Layout, table *resource.UnifiedTable, loader engine.Loader) *Surface {
	return &Surface{
		ctx:       context.Background(),
		space:     space,
		loader:    loader,
		table:     table,
		engines:   resource.NewTyped[engine.Engine](table, resource.TypeTokenizer),
		encodings: resource.NewTyped[*result](table, resource.TypeEncoding),
		layout:    layout,
	}
}

// NewTable creates a handle table that logs lifecycle events.
func NewTable() *resource.UnifiedTable {
	t := resource.NewTable()
	t.Subscribe(lifecycleLog{})
	return t
}

// With returns a copy bound to ctx and space, sharing the handle table.
func (s *Surface) With(ctx context.Context, space tokenizerffi.Space) *Surface {
	c := *s
	c.ctx = ctx
	c.space = space
	return &c
}

// Layout returns the struct layout used by the surface.
func (s *Surface) Layout() Layout { return s.layout }

// Space returns the address space the surface operates on.
func (s *Surface) Space() tokenizerffi.Space { return s.space }

// Table returns the handle table.
func (s *Surface) Table() *resource.UnifiedTable { return s.table }

// guard runs fn, turning errors and panics into a 0 result.
func (s *Surface) guard(op string, phase errors.Phase, fn func() (uint64, error)) (ret uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(op, errors.Panic(phase, op, r))
			ret = 0
		}
	}()

	v, err := fn()
	if err != nil {
		s.fail(op, err)
		return 0
	}
	return v
}

func (s *Surface) guardVoid(op string, fn func() error) {
	s.guard(op, errors.PhaseRelease, func() (uint64, error) {
		return 0, fn()
	})
}

func (s *Surface) fail(op string, err error) {
	Logger().Debug("boundary call failed",
		zap.String("op", op),
		zap.Error(err))
}

type lifecycleLog struct{}

func (lifecycleLog) OnResourceEvent(e resource.Event) {
	Logger().Debug("handle "+e.Type.String(),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.String("type", resource.TypeName(e.TypeID)))
}

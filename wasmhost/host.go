package wasmhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	tokenizerffi "github.com/wippyai/tokenizer-ffi"
	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/engine"
)

// ModuleName is the import module guests link the tokenizer functions from.
const ModuleName = "tokenizers"

// AllocatorFunc picks the allocator for transferred memory in a guest.
type AllocatorFunc func(ctx context.Context, mod api.Module) tokenizerffi.Allocator

// Host serves the tokenizer functions to wasm guests.
//
// Each calling guest gets its own handle table, so a handle created by one
// guest is never valid in another guest's memory.
type Host struct {
	loader    engine.Loader
	allocator AllocatorFunc

	mu     sync.Mutex
	guests map[api.Module]*abi.Surface
	closed bool
}

// Option configures a Host.
type Option func(*Host)

// WithAllocator overrides how guest memory is allocated. The default uses
// the guest's cabi_realloc export.
func WithAllocator(fn AllocatorFunc) Option {
	return func(h *Host) {
		h.allocator = fn
	}
}

// New creates a host that loads tokenizers through loader.
func New(loader engine.Loader, opts ...Option) *Host {
	h := &Host{
		loader:    loader,
		allocator: GuestAllocator,
		guests:    make(map[api.Module]*abi.Surface),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Instantiate registers the host module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range h.functions() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.handler(h), f.paramTypes(), f.resultTypes()).
			Export(f.name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", ModuleName, err)
	}
	Logger().Debug("host module instantiated", zap.String("module", ModuleName))
	return mod, nil
}

// surface returns the surface bound to mod's memory for one call.
func (h *Host) surface(ctx context.Context, mod api.Module) (*abi.Surface, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, fmt.Errorf("module %q has no memory", mod.Name())
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("host closed")
	}
	s, ok := h.guests[mod]
	if !ok {
		s = abi.New(nil, abi.Wasm32, abi.NewTable(), h.loader)
		h.guests[mod] = s
		Logger().Debug("guest attached", zap.String("guest", mod.Name()))
	}
	h.mu.Unlock()

	var alloc tokenizerffi.Allocator
	if h.allocator != nil {
		alloc = h.allocator(ctx, mod)
	}
	if alloc == nil {
		alloc = missingAllocator{}
	}
	return s.With(ctx, space{Memory: guestMemory{mem: mem}, Allocator: alloc}), nil
}

// Live returns the number of live handles held for mod.
func (h *Host) Live(mod api.Module) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.guests[mod]; ok {
		return s.Table().Len()
	}
	return 0
}

// Release drops every handle held for mod. Call it when the guest closes.
// Guest memory is not touched.
func (h *Host) Release(mod api.Module) {
	h.mu.Lock()
	s, ok := h.guests[mod]
	delete(h.guests, mod)
	h.mu.Unlock()
	if ok {
		Logger().Debug("guest released",
			zap.String("guest", mod.Name()),
			zap.Int("handles", s.Table().Len()))
		s.Table().Close()
	}
}

// Close drops the handles of all guests. Calls made after Close fail.
func (h *Host) Close() error {
	h.mu.Lock()
	guests := h.guests
	h.guests = make(map[api.Module]*abi.Surface)
	h.closed = true
	h.mu.Unlock()

	for _, s := range guests {
		s.Table().Close()
	}
	return nil
}

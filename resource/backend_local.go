package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

var _ Backend = (*LocalBackend)(nil)

// LocalBackend is an in-memory handle store with free-list reuse.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// lookup returns the live entry for handle. Callers hold b.mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, bool) {
	if handle == 0 {
		return nil, false
	}
	idx := int(handle - 1)
	if idx >= len(b.entries) {
		return nil, false
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e, true
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Drop removes a value and returns (value, true) if it was live.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	return b.release(handle, e), true
}

// DropTyped removes a value only if its type id matches.
func (b *LocalBackend) DropTyped(handle Handle, typeID uint32) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok || e.typeID != typeID {
		return nil, false
	}
	return b.release(handle, e), true
}

func (b *LocalBackend) release(handle Handle, e *entry) any {
	value := e.value
	e.valid = false
	e.value = nil
	e.typeID = 0
	b.freeList = append(b.freeList, handle)
	return value
}

// Close releases all values, calling Drop on those that implement Dropper.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	return nil
}

// TypeID returns the type id for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of live values.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries) - len(b.freeList)
}

// Each iterates over all live values.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}

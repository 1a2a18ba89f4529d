package resource

import (
	"sync"
)

var _ Table = (*UnifiedTable)(nil)

// UnifiedTable implements the Table interface using a LocalBackend for storage.
type UnifiedTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new unified table with a LocalBackend.
func NewTable() *UnifiedTable {
	return &UnifiedTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *UnifiedTable) Insert(typeID uint32, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *UnifiedTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a value and returns (value, true) if found.
func (t *UnifiedTable) Remove(handle Handle) (any, bool) {
	typeID, _ := t.backend.TypeID(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}
	t.dropped(handle, typeID, value)
	return value, true
}

// RemoveTyped drops a value only if it matches the expected type.
// The type check and removal happen atomically.
func (t *UnifiedTable) RemoveTyped(handle Handle, typeID uint32) (any, bool) {
	value, ok := t.backend.DropTyped(handle, typeID)
	if !ok {
		return nil, false
	}
	t.dropped(handle, typeID, value)
	return value, true
}

func (t *UnifiedTable) dropped(handle Handle, typeID uint32, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live values.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Count returns the number of live values of one type.
func (t *UnifiedTable) Count(typeID uint32) int {
	n := 0
	t.backend.Each(func(_ Handle, tid uint32, _ any) bool {
		if tid == typeID {
			n++
		}
		return true
	})
	return n
}

// Clear drops all values.
func (t *UnifiedTable) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all values and stops accepting inserts.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Typed is a TypedTable view over one type id of a UnifiedTable.
type Typed[T any] struct {
	table  *UnifiedTable
	typeID uint32
}

var _ TypedTable[string] = Typed[string]{}

// NewTyped returns a typed view sharing storage with table.
func NewTyped[T any](table *UnifiedTable, typeID uint32) Typed[T] {
	return Typed[T]{table: table, typeID: typeID}
}

// TypeID returns the type id of the view.
func (v Typed[T]) TypeID() uint32 { return v.typeID }

func (v Typed[T]) Insert(value T) Handle {
	return v.table.Insert(v.typeID, value)
}

func (v Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	value, ok := v.table.GetTyped(handle, v.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

func (v Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	value, ok := v.table.RemoveTyped(handle, v.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

func (v Typed[T]) Len() int {
	return v.table.Count(v.typeID)
}

// Each iterates over live values of the view's type. fn must not modify the table.
func (v Typed[T]) Each(fn func(Handle, T) bool) {
	v.table.backend.Each(func(h Handle, tid uint32, value any) bool {
		if tid != v.typeID {
			return true
		}
		typed, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}

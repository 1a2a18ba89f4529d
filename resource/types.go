package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Type ids of the values the boundary keeps in its table.
const (
	TypeTokenizer uint32 = iota + 1
	TypeEncoding
)

// TypeName returns a printable name for a type id.
func TypeName(typeID uint32) string {
	switch typeID {
	case TypeTokenizer:
		return "tokenizer"
	case TypeEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (e EventType) String() string {
	if e == EventCreated {
		return "created"
	}
	return "dropped"
}

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism for values.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a value and returns (value, true) if it was live.
	Drop(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Table manages values with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID uint32, value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Remove drops a value and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// RemoveTyped drops a value only if it matches the expected type.
	RemoveTyped(handle Handle, typeID uint32) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of live values.
	Len() int

	// Clear drops all values.
	Clear()

	// Close releases all values and stops accepting inserts.
	Close() error
}

// TypedTable provides type-safe access to values of a specific type.
type TypedTable[T any] interface {
	// Insert adds a value and returns its handle.
	Insert(value T) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (T, bool)

	// Remove drops a value and returns (value, true) if found.
	Remove(handle Handle) (T, bool)

	// Len returns the number of live values of this type.
	Len() int

	// Each iterates over all live values of this type.
	Each(func(Handle, T) bool)
}

// Dropper is optionally implemented by values that need cleanup on removal.
type Dropper interface {
	Drop()
}

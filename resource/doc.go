// Package resource provides the handle table behind opaque boundary handles.
//
// Values handed across the boundary (tokenizer engines, encodings) never
// leave Go memory. Foreign code holds a small integer id that is looked up
// here on every call.
//
// # Handle Table
//
// The UnifiedTable maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h := table.Insert(resource.TypeTokenizer, engine)
//
//	// Retrieve value by handle
//	value, ok := table.GetTyped(h, resource.TypeTokenizer)
//
//	// Remove and get value (release)
//	value, ok := table.RemoveTyped(h, resource.TypeTokenizer)
//
// Handle 0 is never issued and freed slots are reused, so a handle is only
// meaningful between its Insert and its Remove.
//
// # Typed Views
//
// NewTyped wraps one type id of a table in a generic TypedTable:
//
//	engines := resource.NewTyped[engine.Engine](table, resource.TypeTokenizer)
//	h := engines.Insert(e)
//	e, ok := engines.Get(h)
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer) // OnResourceEvent(Event) for created/dropped
//
// # Memory Management
//
// Values are not garbage collected while their handle is live. Foreign code
// must release every handle it receives. Close drops everything at once.
package resource

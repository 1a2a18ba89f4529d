package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	// Insert
	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	// Get
	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	// GetTyped with correct type
	_, ok = table.GetTyped(h, 1)
	if !ok {
		t.Fatal("GetTyped with correct type failed")
	}

	// GetTyped with wrong type
	_, ok = table.GetTyped(h, 2)
	if ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	// Remove
	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	// Len should be 0
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	// Insert should trigger EventCreated
	h := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	// Remove should trigger EventDropped
	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}

	// Unsubscribe
	table.Unsubscribe(obs)
	table.Insert(1, "test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()

	table.Insert(1, "a")
	table.Insert(1, "b")
	table.Insert(1, "c")

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert(1, "a")
	table.Insert(1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Insert should fail after Close
	h := table.Insert(1, "c")
	if h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

func TestUnifiedTable_RemoveTyped(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(TypeTokenizer, "engine")

	if _, ok := table.RemoveTyped(h, TypeEncoding); ok {
		t.Fatal("RemoveTyped with wrong type should fail")
	}
	if len(obs.events) != 1 {
		t.Fatalf("failed removal should not notify, got %d events", len(obs.events))
	}

	val, ok := table.RemoveTyped(h, TypeTokenizer)
	if !ok || val != "engine" {
		t.Fatalf("RemoveTyped = %v, %v", val, ok)
	}
	if obs.events[1].Type != EventDropped || obs.events[1].TypeID != TypeTokenizer {
		t.Fatalf("unexpected event %+v", obs.events[1])
	}
}

func TestUnifiedTable_Count(t *testing.T) {
	table := NewTable()

	table.Insert(TypeTokenizer, "t")
	table.Insert(TypeEncoding, "e1")
	table.Insert(TypeEncoding, "e2")

	if n := table.Count(TypeEncoding); n != 2 {
		t.Fatalf("Count(encoding) = %d, want 2", n)
	}
	if n := table.Count(TypeTokenizer); n != 1 {
		t.Fatalf("Count(tokenizer) = %d, want 1", n)
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	strs := NewTyped[string](table, TypeTokenizer)
	ints := NewTyped[int](table, TypeEncoding)

	hs := strs.Insert("a")
	hi := ints.Insert(7)

	if v, ok := strs.Get(hs); !ok || v != "a" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if _, ok := strs.Get(hi); ok {
		t.Fatal("typed view should not see other types")
	}
	if strs.Len() != 1 || ints.Len() != 1 {
		t.Fatalf("Len = %d/%d, want 1/1", strs.Len(), ints.Len())
	}

	seen := 0
	ints.Each(func(h Handle, v int) bool {
		if h != hi || v != 7 {
			t.Errorf("Each got %d=%d", h, v)
		}
		seen++
		return true
	})
	if seen != 1 {
		t.Fatalf("Each visited %d, want 1", seen)
	}

	if _, ok := ints.Remove(hs); ok {
		t.Fatal("Remove through the wrong view should fail")
	}
	if v, ok := ints.Remove(hi); !ok || v != 7 {
		t.Fatalf("Remove = %d, %v", v, ok)
	}
	if table.Len() != 1 {
		t.Fatalf("table.Len() = %d, want 1", table.Len())
	}
}

func TestEventType_String(t *testing.T) {
	if EventCreated.String() != "created" || EventDropped.String() != "dropped" {
		t.Fatalf("String() = %s/%s", EventCreated, EventDropped)
	}
	if TypeName(TypeTokenizer) != "tokenizer" || TypeName(TypeEncoding) != "encoding" || TypeName(99) != "unknown" {
		t.Fatal("unexpected TypeName output")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestUnifiedTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(1, d)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

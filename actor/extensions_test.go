package actor

import "testing"

func TestExtensionsNextIDMonotonicStartingAtOne(t *testing.T) {
	e := newExtensions()
	if got := e.NextID(); got != 1 {
		t.Fatalf("expected first NextID() == 1, got %d", got)
	}
	if got := e.NextID(); got != 2 {
		t.Fatalf("expected second NextID() == 2, got %d", got)
	}
}

func TestExtensionsRegisterLookupRoundTrip(t *testing.T) {
	e := newExtensions()
	key := NewExtensionKey[int]("widget-count")

	if _, ok := LookupExtension(e, key); ok {
		t.Fatal("expected no value before registration")
	}

	RegisterExtension(e, key, 42)
	got, ok := LookupExtension(e, key)
	if !ok || got != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", got, ok)
	}

	RegisterExtension(e, key, 99)
	got, ok = LookupExtension(e, key)
	if !ok || got != 99 {
		t.Fatalf("expected re-registration to replace the value, got (%d, %v)", got, ok)
	}
}

func TestExtensionsLookupWrongTypeMisses(t *testing.T) {
	e := newExtensions()
	intKey := NewExtensionKey[int]("shared-name")
	RegisterExtension(e, intKey, 7)

	strKey := NewExtensionKey[string]("shared-name")
	_, ok := LookupExtension(e, strKey)
	if ok {
		t.Fatal("expected a type-mismatched lookup under the same name to miss")
	}
}

package tree

import "testing"

func TestVisited_SetIsSet(t *testing.T) {
	v := newVisited()
	if v.isSet(10) {
		t.Fatal("expected unset")
	}
	v.set(10)
	if !v.isSet(10) {
		t.Fatal("expected set")
	}
	if v.isSet(11) {
		t.Fatal("expected 11 unset")
	}
}

func TestVisited_GrowsPastInitialCapacity(t *testing.T) {
	v := newVisited()
	v.set(100000)
	if !v.isSet(100000) {
		t.Fatal("expected set after grow")
	}
	if v.isSet(99999) {
		t.Fatal("expected neighbor unset")
	}
}

package label

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	m := NewMap[int](8)
	m.Put("loop", 42)

	e := m.Lookup("loop")
	if e == nil {
		t.Fatalf("Lookup(%q) = nil, want an entry", "loop")
	}
	if e.Command != 42 {
		t.Errorf("Command = %d, want 42", e.Command)
	}
}

func TestLookupMissing(t *testing.T) {
	m := NewMap[int](8)
	if e := m.Lookup("nope"); e != nil {
		t.Errorf("Lookup of an absent label returned %+v, want nil", e)
	}
}

func TestEmptyBucketIsNilNotCrash(t *testing.T) {
	m := NewMap[int](8)
	// Every bucket is empty; each head must be nil rather than a
	// zero-valued sentinel entry that would panic on Name access.
	for i := 0; i < 8; i++ {
		if head := m.buckets[i]; head != nil {
			t.Fatalf("bucket %d: expected nil head, got %+v", i, head)
		}
	}
}

func TestDuplicateLabelFirstDeclaredWins(t *testing.T) {
	m := NewMap[string](1) // capacity 1 forces every name into the same bucket
	m.Put("dup", "first")
	m.Put("dup", "second")

	e := m.Lookup("dup")
	if e == nil {
		t.Fatalf("Lookup(%q) = nil", "dup")
	}
	if e.Command != "first" {
		t.Errorf("Command = %q, want %q (first declaration wins)", e.Command, "first")
	}
}

func TestCollisionChainWalksToExactMatch(t *testing.T) {
	m := NewMap[int](1) // force a collision between every name
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	for name, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		e := m.Lookup(name)
		if e == nil {
			t.Fatalf("Lookup(%q) = nil", name)
		}
		if e.Command != want {
			t.Errorf("Lookup(%q).Command = %d, want %d", name, e.Command, want)
		}
	}
}

func TestNewMapClampsNonPositiveCapacity(t *testing.T) {
	m := NewMap[int](0)
	if len(m.buckets) != 1 {
		t.Errorf("capacity 0 should clamp to 1 bucket, got %d", len(m.buckets))
	}
}

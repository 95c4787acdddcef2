package universe

import "testing"

func TestBuilderAllocatesContiguousRanges(t *testing.T) {
	b := NewBuilder()
	b.AddAtoms("Person", 3)
	b.AddAtoms("Book", 2)
	u := b.Build()

	if u.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", u.Size())
	}
	start, end, ok := u.RangeOf("Person")
	if !ok || start != 0 || end != 3 {
		t.Errorf("RangeOf(Person) = (%d,%d,%v), want (0,3,true)", start, end, ok)
	}
	start, end, ok = u.RangeOf("Book")
	if !ok || start != 3 || end != 5 {
		t.Errorf("RangeOf(Book) = (%d,%d,%v), want (3,5,true)", start, end, ok)
	}
}

func TestExtendRangeUnionsBounds(t *testing.T) {
	b := NewBuilder()
	b.ExtendRange("Thing", 2, 5)
	b.ExtendRange("Thing", 0, 3)
	u := b.Build()

	start, end, ok := u.RangeOf("Thing")
	if !ok || start != 0 || end != 5 {
		t.Errorf("RangeOf(Thing) = (%d,%d,%v), want (0,5,true)", start, end, ok)
	}
}

func TestTupleSetAddMaintainsOrderAndDedup(t *testing.T) {
	ts := NewTupleSet(2)
	ts.Add(AtomTuple{2, 1})
	ts.Add(AtomTuple{0, 1})
	ts.Add(AtomTuple{0, 1}) // duplicate
	ts.Add(AtomTuple{1, 0})

	if ts.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ts.Len())
	}
	want := []AtomTuple{{0, 1}, {1, 0}, {2, 1}}
	for i, w := range want {
		if !ts.Tuples[i].Equal(w) {
			t.Errorf("Tuples[%d] = %v, want %v", i, ts.Tuples[i], w)
		}
	}
}

func TestTupleSetContains(t *testing.T) {
	ts := NewTupleSet(1)
	ts.Add(AtomTuple{4})
	if !ts.Contains(AtomTuple{4}) {
		t.Errorf("Contains({4}) = false, want true")
	}
	if ts.Contains(AtomTuple{5}) {
		t.Errorf("Contains({5}) = true, want false")
	}
}

func TestCrossProduct(t *testing.T) {
	a := NewTupleSet(1)
	a.Add(AtomTuple{0})
	a.Add(AtomTuple{1})
	b := NewTupleSet(1)
	b.Add(AtomTuple{2})

	cp := CrossProduct(a, b)
	if cp.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cp.Len())
	}
	if !cp.Contains(AtomTuple{0, 2}) || !cp.Contains(AtomTuple{1, 2}) {
		t.Errorf("CrossProduct missing expected tuples: %v", cp.Tuples)
	}
}

func TestUnion(t *testing.T) {
	a := NewTupleSet(1)
	a.Add(AtomTuple{0})
	b := NewTupleSet(1)
	b.Add(AtomTuple{1})

	u := Union(a, b)
	if u.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", u.Len())
	}
}

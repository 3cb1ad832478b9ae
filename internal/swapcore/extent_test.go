package swapcore

import "testing"

func TestExtentMap_LookupWithinAndAcrossExtents(t *testing.T) {
	m := NewExtentMap([]Extent{
		{Start: 1, Length: 4, StartBlock: 100},
		{Start: 5, Length: 3, StartBlock: 200},
	})

	block, err := m.Lookup(2)
	if err != nil {
		t.Fatal(err)
	}

	if block != 101 {
		t.Fatalf("Lookup(2) = %d, want 101", block)
	}

	block, err = m.Lookup(6)
	if err != nil {
		t.Fatal(err)
	}

	if block != 201 {
		t.Fatalf("Lookup(6) = %d, want 201", block)
	}
}

func TestExtentMap_LookupAdvancesCursor(t *testing.T) {
	m := NewExtentMap([]Extent{
		{Start: 1, Length: 1, StartBlock: 10},
		{Start: 2, Length: 1, StartBlock: 20},
		{Start: 3, Length: 1, StartBlock: 30},
	})

	if _, err := m.Lookup(3); err != nil {
		t.Fatal(err)
	}

	if m.curr != 2 {
		t.Fatalf("cursor = %d, want 2 after looking up the last extent", m.curr)
	}
}

func TestExtentMap_LookupMissIsError(t *testing.T) {
	m := NewExtentMap([]Extent{{Start: 1, Length: 2, StartBlock: 10}})

	if _, err := m.Lookup(99); err == nil {
		t.Fatal("expected an error looking up an offset outside every extent")
	}
}

func TestExtentMap_LookupEmptyMapIsError(t *testing.T) {
	m := NewExtentMap(nil)

	if _, err := m.Lookup(1); err == nil {
		t.Fatal("expected an error looking up in an empty extent map")
	}
}

func TestMergeExtents_CoalescesContiguousRuns(t *testing.T) {
	in := []Extent{
		{Start: 1, Length: 1, StartBlock: 10},
		{Start: 2, Length: 1, StartBlock: 11},
		{Start: 3, Length: 1, StartBlock: 12},
		{Start: 4, Length: 1, StartBlock: 100}, // not block-contiguous with the above
	}

	out := mergeExtents(in)

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}

	if out[0].Start != 1 || out[0].Length != 3 || out[0].StartBlock != 10 {
		t.Fatalf("out[0] = %+v, want {1 3 10}", out[0])
	}

	if out[1].Start != 4 || out[1].Length != 1 || out[1].StartBlock != 100 {
		t.Fatalf("out[1] = %+v, want {4 1 100}", out[1])
	}
}

func TestMergeExtents_Empty(t *testing.T) {
	if out := mergeExtents(nil); out != nil {
		t.Fatalf("mergeExtents(nil) = %v, want nil", out)
	}
}

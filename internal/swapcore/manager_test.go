package swapcore

import "testing"

// newTestManager builds a Manager and registers pre-built areas directly
// into its registry, bypassing Activate so the allocator/free/duplicate
// path can be exercised on its own (spec.md §8 scenarios 1-4).
func newTestManager(t *testing.T, areas ...*Area) *Manager {
	t.Helper()

	m := NewManager()

	m.reg.lock()
	for _, a := range areas {
		a.Index = m.reg.allocateIndex()
		a.setFlags(FlagActive)
		m.reg.register(a)
	}
	m.reg.unlock()

	return m
}

func TestManager_SingleAreaAllocatorWrap(t *testing.T) {
	a := newTestArea(t, 11) // 10 usable slots
	m := newTestManager(t, a)

	seen := make(map[uint32]bool)

	for i := 0; i < 10; i++ {
		entry, ok := m.Allocate()
		if !ok {
			t.Fatalf("allocate %d failed, expected success", i)
		}

		if entry.AreaIndex() != a.Index {
			t.Fatalf("entry area index = %d, want %d", entry.AreaIndex(), a.Index)
		}

		off := entry.Offset()
		if off < 1 || off > 10 {
			t.Fatalf("offset %d out of usable range [1,10]", off)
		}

		if seen[off] {
			t.Fatalf("offset %d allocated twice", off)
		}

		seen[off] = true
	}

	if len(seen) != 10 {
		t.Fatalf("allocated %d distinct offsets, want 10", len(seen))
	}

	if _, ok := m.Allocate(); ok {
		t.Fatal("11th allocate should fail once the area is full")
	}
}

func TestManager_PriorityOrdering(t *testing.T) {
	x := newTestArea(t, 5) // 4 usable
	x.Priority = 10

	y := newTestArea(t, 5)
	y.Priority = 5

	m := newTestManager(t, x, y)

	for i := 0; i < 4; i++ {
		entry, ok := m.Allocate()
		if !ok {
			t.Fatalf("allocate %d failed", i)
		}

		if entry.AreaIndex() != x.Index {
			t.Fatalf("allocate %d landed on area %d, want the higher-priority area %d", i, entry.AreaIndex(), x.Index)
		}
	}

	entry, ok := m.Allocate()
	if !ok {
		t.Fatal("5th allocate should succeed by falling through to the lower-priority area")
	}

	if entry.AreaIndex() != y.Index {
		t.Fatalf("5th allocate landed on area %d, want %d", entry.AreaIndex(), y.Index)
	}
}

func TestManager_FreeReturnsTotalFreeToPriorValue(t *testing.T) {
	a := newTestArea(t, 11)
	m := newTestManager(t, a)

	before, _ := m.Totals()

	entry, ok := m.Allocate()
	if !ok {
		t.Fatal("allocate failed")
	}

	m.Free(entry)

	after, _ := m.Totals()
	if after != before {
		t.Fatalf("total_free_slots = %d after allocate+free, want %d", after, before)
	}
}

func TestManager_DuplicateSaturatesThenFreeIsSticky(t *testing.T) {
	a := newTestArea(t, 11)
	m := newTestManager(t, a)

	entry, ok := m.Allocate()
	if !ok {
		t.Fatal("allocate failed")
	}

	for i := 0; i < int(CountMax)+2; i++ {
		if err := m.Duplicate(entry); err != nil {
			t.Fatalf("duplicate %d: %v", i, err)
		}
	}

	area, _ := m.reg.byAreaIndex(entry.AreaIndex())
	if area.refs.Get(entry.Offset()) != CountMax {
		t.Fatalf("counter = %d, want CountMax after saturating", area.refs.Get(entry.Offset()))
	}

	m.Free(entry)

	if area.refs.Get(entry.Offset()) != CountMax {
		t.Fatal("free must not decrement a saturated counter")
	}
}

func TestManager_BadSlotsNeverAllocated(t *testing.T) {
	a := newTestArea(t, 11, 3, 7)
	m := newTestManager(t, a)

	if a.Pages != 8 {
		t.Fatalf("Pages = %d, want 8 (10 usable minus 2 bad)", a.Pages)
	}

	for i := 0; i < 8; i++ {
		entry, ok := m.Allocate()
		if !ok {
			t.Fatalf("allocate %d failed", i)
		}

		if off := entry.Offset(); off == 3 || off == 7 {
			t.Fatalf("allocate returned bad offset %d", off)
		}
	}

	if _, ok := m.Allocate(); ok {
		t.Fatal("allocate should fail once all 8 usable slots are taken")
	}
}

func TestManager_LookupResolvesThroughExtentMap(t *testing.T) {
	a := newTestArea(t, 11)
	m := newTestManager(t, a)

	entry, ok := m.Allocate()
	if !ok {
		t.Fatal("allocate failed")
	}

	block, err := m.Lookup(entry)
	if err != nil {
		t.Fatal(err)
	}

	want, _ := a.extents.Lookup(entry.Offset())
	if block != want {
		t.Fatalf("Lookup(entry) = %d, want %d", block, want)
	}
}

func TestManager_DuplicateOnCorruptEntryIsReported(t *testing.T) {
	a := newTestArea(t, 11)
	m := newTestManager(t, a)

	bogus := NewEntry(a.Index, 5) // never allocated: counter is 0

	if err := m.Duplicate(bogus); err == nil {
		t.Fatal("expected duplicate on a free slot to report CorruptSlot")
	}
}

func TestManager_FreeOnUnregisteredAreaIsIgnoredNotPanicked(t *testing.T) {
	m := newTestManager(t)

	bogus := NewEntry(99, 1)

	m.Free(bogus) // must not panic
}

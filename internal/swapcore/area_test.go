package swapcore

import "testing"

type fakeBacking struct {
	path       string
	blockDev   bool
	origBlock  uint32
	restored   uint32
	closed     bool
}

func (f *fakeBacking) Path() string { return f.path }
func (f *fakeBacking) Close() error { f.closed = true; return nil }
func (f *fakeBacking) IsBlockDevice() bool { return f.blockDev }
func (f *fakeBacking) OriginalBlockSize() uint32 { return f.origBlock }
func (f *fakeBacking) RestoreBlockSize(original uint32) error { f.restored = original; return nil }

func newTestArea(t *testing.T, max uint32, bad ...uint32) *Area {
	t.Helper()

	refs := NewRefTable(max)
	refs.MarkBad(0)

	for _, b := range bad {
		refs.MarkBad(b)
	}

	extents := NewExtentMap([]Extent{{Start: 1, Length: max - 1, StartBlock: 1}})

	return newArea(1, &fakeBacking{path: "test"}, max, uint32(len(bad)), refs, extents)
}

func TestArea_MarkAllocatedAdvancesLowestBit(t *testing.T) {
	a := newTestArea(t, 11) // slots 1..10 usable

	if a.lowestBit != 1 || a.highestBit != 10 {
		t.Fatalf("initial bounds = [%d,%d], want [1,10]", a.lowestBit, a.highestBit)
	}

	a.markAllocated(1)

	if a.lowestBit != 2 {
		t.Fatalf("lowestBit = %d, want 2 after allocating the boundary offset", a.lowestBit)
	}

	if a.inusePages != 1 {
		t.Fatalf("inusePages = %d, want 1", a.inusePages)
	}
}

func TestArea_MarkAllocatedDoesNotAdvanceLowestBitForInteriorOffset(t *testing.T) {
	a := newTestArea(t, 11)

	a.markAllocated(5)

	if a.lowestBit != 1 {
		t.Fatalf("lowestBit = %d, want unchanged 1 for an interior allocation", a.lowestBit)
	}
}

func TestArea_FullSentinel(t *testing.T) {
	a := newTestArea(t, 4) // slots 1..3 usable

	for o := uint32(1); o <= 3; o++ {
		a.markAllocated(o)
	}

	if !a.isFull() {
		t.Fatal("area should report full once inusePages == pages")
	}

	if a.lowestBit != a.Max || a.highestBit != 0 {
		t.Fatalf("full sentinel bounds = [%d,%d], want [%d,0]", a.lowestBit, a.highestBit, a.Max)
	}
}

func TestArea_MarkFreedWidensBounds(t *testing.T) {
	a := newTestArea(t, 11)

	for o := uint32(1); o <= 10; o++ {
		a.markAllocated(o)
	}

	if !a.isFull() {
		t.Fatal("expected full after allocating every usable slot")
	}

	a.refs.free(5) // counter 1 -> 0, as Manager.Free would drive it
	a.markFreed(5)

	if a.lowestBit != 5 || a.highestBit != 5 {
		t.Fatalf("bounds after single free = [%d,%d], want [5,5]", a.lowestBit, a.highestBit)
	}

	if a.isFull() {
		t.Fatal("area should no longer report full after a free")
	}
}

func TestArea_ValidNeighborsStopsAtHoleAndBoundary(t *testing.T) {
	a := newTestArea(t, 17) // slots 1..16, two clusters of 8 for this test's window

	for _, o := range []uint32{3, 4, 5, 6} {
		a.markAllocated(o)
	}

	start, count := a.ValidNeighbors(4, 8)
	if start != 3 || count != 4 {
		t.Fatalf("ValidNeighbors(4,8) = (%d,%d), want (3,4)", start, count)
	}
}

func TestArea_ValidNeighborsSingleSlot(t *testing.T) {
	a := newTestArea(t, 17)

	a.markAllocated(9)

	start, count := a.ValidNeighbors(9, 8)
	if start != 9 || count != 1 {
		t.Fatalf("ValidNeighbors(9,8) = (%d,%d), want (9,1)", start, count)
	}
}

func TestArea_ScanCounterTracksInFlight(t *testing.T) {
	a := newTestArea(t, 11)

	if a.scansInFlight() != 0 {
		t.Fatal("expected no scans in flight initially")
	}

	a.beginScan()
	a.beginScan()

	if a.scansInFlight() != 2 {
		t.Fatalf("scansInFlight = %d, want 2", a.scansInFlight())
	}

	a.endScan()

	if a.scansInFlight() != 1 {
		t.Fatalf("scansInFlight = %d, want 1", a.scansInFlight())
	}
}

func TestArea_LookupDelegatesToExtentMap(t *testing.T) {
	a := newTestArea(t, 11)

	block, err := a.Lookup(4)
	if err != nil {
		t.Fatal(err)
	}

	if block != 4 {
		t.Fatalf("Lookup(4) = %d, want 4 (identity extent starting at block 1)", block)
	}
}

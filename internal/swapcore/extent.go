package swapcore

import "fmt"

// Extent is a contiguous run of slots mapped to contiguous device blocks:
// slots [Start, Start+Length) map to device blocks [StartBlock,
// StartBlock+Length).
type Extent struct {
	Start      uint32 // first slot offset covered
	Length     uint32 // number of slots covered
	StartBlock uint64 // device block backing Start
}

func (e Extent) contains(offset uint32) bool {
	return offset >= e.Start && offset < e.Start+e.Length
}

func (e Extent) end() uint32 { return e.Start + e.Length }

// ExtentMap resolves a slot offset to an absolute device block. It is built
// once at activation (§4.A) and is immutable thereafter for the life of the
// area (invariant 5, spec.md §3): only the cursor that accelerates
// sequential lookups changes.
type ExtentMap struct {
	extents []Extent // strictly ascending by Start, pairwise disjoint
	curr    int       // index of the most recently consulted extent
}

// NewExtentMap builds an extent map from extents already in ascending,
// disjoint, block-contiguous-merged order. Callers (activation) are
// responsible for producing that order; NewExtentMap does not re-sort.
func NewExtentMap(extents []Extent) *ExtentMap {
	return &ExtentMap{extents: extents}
}

// Extents returns the underlying extent list, for inspection/tests only.
func (m *ExtentMap) Extents() []Extent { return m.extents }

// Lookup resolves offset to its device block, starting the search from the
// cached cursor and advancing circularly until a containing extent is
// found. Per spec.md §4.A this must terminate for any offset that is
// actually covered by the map; a miss is a programmer error (corrupted
// map), not a user-facing error, because invariant 4 guarantees the map is
// total on [1, max) minus bad slots, and callers never look up a bad slot.
func (m *ExtentMap) Lookup(offset uint32) (uint64, error) {
	n := len(m.extents)
	if n == 0 {
		return 0, fmt.Errorf("swapcore: extent map is empty, cannot resolve offset %d", offset)
	}

	start := m.curr
	if start < 0 || start >= n {
		start = 0
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		e := m.extents[idx]

		if e.contains(offset) {
			m.curr = idx
			return e.StartBlock + uint64(offset-e.Start), nil
		}
	}

	return 0, fmt.Errorf("swapcore: corrupted extent map, offset %d is not covered by any extent", offset)
}

// mergeExtents coalesces a list of extents (already sorted by Start) whose
// block ranges are contiguous, as required by §4.A: "runs of filesystem
// blocks that are both contiguous on disk and aligned to the slot size are
// coalesced into one extent."
func mergeExtents(in []Extent) []Extent {
	if len(in) == 0 {
		return nil
	}

	out := make([]Extent, 0, len(in))
	cur := in[0]

	for _, e := range in[1:] {
		if cur.end() == e.Start && cur.StartBlock+uint64(cur.Length) == e.StartBlock {
			cur.Length += e.Length
			continue
		}

		out = append(out, cur)
		cur = e
	}

	out = append(out, cur)

	return out
}

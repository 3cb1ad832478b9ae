// Package swapcore implements the core swap-area manager: slot allocation,
// the extent map, the reference-count discipline, activation and
// deactivation of backing stores, and the locking discipline tying them
// together.
package swapcore

import "sync/atomic"

// Count is the small unsigned counter stored per slot. Two values are
// reserved: Bad marks a permanently defective slot, Max is the sticky
// saturation sentinel. Every other value counts live references.
type Count uint32

const (
	// CountFree means the slot holds no references and may be allocated.
	CountFree Count = 0
	// CountMax is the saturation sentinel: once reached, duplicate() no
	// longer increments and free() no longer decrements. The slot is
	// effectively pinned until the owning area is deactivated.
	CountMax Count = 1<<16 - 1
	// CountBad marks a slot that was never usable (out of range, listed in
	// the header's bad_slots, or the reserved header slot 0). It is never
	// allocated and never freed.
	CountBad Count = 1<<16 - 2
)

// RefTable is the dense per-slot reference-count array for one area. Every
// slot's arithmetic is normally performed under the owning area's slice of
// the manager's allocator lock (spec.md §4.C), but the within-area cluster
// scan (§4.B) is explicitly specified to run with that lock released, so
// slots are stored as atomics: a lock-free read during an unlocked scan
// observes a consistent (if possibly stale) value instead of tearing, and
// every mutating path is re-validated under the lock before it is
// committed (see scanArea in scan.go).
type RefTable struct {
	counts []atomic.Uint32
}

// NewRefTable allocates a zeroed reference table sized for max slots
// (including the reserved header slot 0).
func NewRefTable(max uint32) *RefTable {
	return &RefTable{counts: make([]atomic.Uint32, max)}
}

// Len returns the number of slots in the table (== area.max).
func (t *RefTable) Len() int { return len(t.counts) }

// Get returns the raw counter value at offset.
func (t *RefTable) Get(offset uint32) Count { return Count(t.counts[offset].Load()) }

// MarkBad permanently marks a slot defective. Only used during activation,
// before the table is exposed to allocation.
func (t *RefTable) MarkBad(offset uint32) { t.counts[offset].Store(uint32(CountBad)) }

// IsBad reports whether offset is a permanently defective slot.
func (t *RefTable) IsBad(offset uint32) bool { return t.Get(offset) == CountBad }

// IsFree reports whether offset currently holds zero references. Safe to
// call without the allocator lock (see RefTable doc comment); callers that
// need a non-stale answer must hold the lock or re-validate.
func (t *RefTable) IsFree(offset uint32) bool { return t.Get(offset) == CountFree }

// IsLive reports whether offset counts toward inuse_pages: any value other
// than free or bad (invariant 1 of spec.md §3).
func (t *RefTable) IsLive(offset uint32) bool {
	c := t.Get(offset)
	return c != CountFree && c != CountBad
}

// IsSaturated reports whether offset has hit the sticky saturation
// sentinel.
func (t *RefTable) IsSaturated(offset uint32) bool { return t.Get(offset) == CountMax }

// setLive is used by the allocator when handing out a fresh slot: the
// counter transitions from free directly to 1. Caller holds the allocator
// lock and has already verified the slot was free.
func (t *RefTable) setLive(offset uint32) { t.counts[offset].Store(1) }

// duplicateResult is the outcome of attempting to bump a counter.
type duplicateResult int

const (
	dupOK duplicateResult = iota
	dupSaturated
	dupCorrupt
)

// duplicate increments the counter at offset, saturating at CountMax once
// the next value would reach the reserved CountBad (spec.md §4.B: the
// counter saturates at MAX and the call still succeeds). It reports
// dupCorrupt if the slot is free or bad. Caller holds the allocator lock.
func (t *RefTable) duplicate(offset uint32) duplicateResult {
	c := t.Get(offset)

	switch {
	case c == CountFree || c == CountBad:
		return dupCorrupt
	case c == CountMax:
		return dupSaturated
	case c+1 == CountBad:
		t.counts[offset].Store(uint32(CountMax))
		return dupSaturated
	default:
		t.counts[offset].Store(uint32(c + 1))
		return dupOK
	}
}

// freeResult is the outcome of dropping a reference.
type freeResult int

const (
	freeDropped freeResult = iota // counter decremented, still > 0
	freeToZero                    // counter transitioned to 0
	freeSticky                    // counter was saturated; untouched
	freeCorrupt                   // slot was already free or is bad
)

// free decrements the counter at offset. A saturated counter is sticky: it
// is never decremented by free() (spec.md §4.B). Caller holds the
// allocator lock.
func (t *RefTable) free(offset uint32) freeResult {
	c := t.Get(offset)

	switch {
	case c == CountFree || c == CountBad:
		return freeCorrupt
	case c == CountMax:
		return freeSticky
	case c == 1:
		t.counts[offset].Store(uint32(CountFree))
		return freeToZero
	default:
		t.counts[offset].Store(uint32(c - 1))
		return freeDropped
	}
}

// resetSaturated forces a saturated counter back to 1. Used only by drain
// (spec.md §4.G phase 2: "if a counter has saturated at MAX, reset it to 1
// under the lock").
func (t *RefTable) resetSaturated(offset uint32) {
	t.counts[offset].Store(1)
}

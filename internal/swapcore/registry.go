package swapcore

import (
	"sort"
	"sync"
)

// Registry is the single owned structure holding every registered area,
// the priority ordering, the round-robin allocation cursor, and
// total_free_slots. Per the design notes of spec.md §9 ("model them as a
// single owned structure with a mutex ... rather than ambient globals")
// Registry embeds the one global allocator lock (§4.H lock #2): it
// protects the ordering, every area's cursors/flags/counters, and
// totalFree. It is the Go analogue of the teacher's RegionAllocator, which
// plays the same "one mutex guards every region's bookkeeping" role for
// region-based heaps.
type Registry struct {
	mu sync.Mutex

	// ordered holds every USED area sorted by Priority descending, ties
	// broken by ascending seq (insertion order) — spec.md §3 "Registry".
	ordered []*Area
	nextPos int // round-robin cursor: index into ordered to try first

	byIndex map[uint32]*Area

	totalFree uint64
	nextIndex uint32
	nextSeq   uint64
}

// NewRegistry creates an empty registry. Area index 0 is never assigned,
// so the zero Entry unambiguously means "none" (spec.md §3).
func NewRegistry() *Registry {
	return &Registry{byIndex: make(map[uint32]*Area), nextIndex: 1}
}

// lock/unlock expose the allocator lock to callers (activation, drain)
// that need to hold it across more than one Registry method call.
func (r *Registry) lock()   { r.mu.Lock() }
func (r *Registry) unlock() { r.mu.Unlock() }

// allocateIndex reserves the next unused descriptor slot (spec.md §4.F
// step 1). Must be called with the lock held.
func (r *Registry) allocateIndex() uint32 {
	idx := r.nextIndex
	r.nextIndex++

	return idx
}

// register inserts area into the priority-ordered list and adds its pages
// to total_free_slots (spec.md §4.F step 10). Must be called with the lock
// held; area.Index must already be set and area must not already be
// present.
func (r *Registry) register(area *Area) {
	area.seq = r.nextSeq
	r.nextSeq++

	r.byIndex[area.Index] = area

	pos := sort.Search(len(r.ordered), func(i int) bool {
		o := r.ordered[i]
		if o.Priority != area.Priority {
			return o.Priority < area.Priority
		}

		return o.seq > area.seq
	})

	r.ordered = append(r.ordered, nil)
	copy(r.ordered[pos+1:], r.ordered[pos:])
	r.ordered[pos] = area

	r.totalFree += uint64(area.Pages)

	if len(r.ordered) > 1 {
		if r.nextPos >= pos {
			r.nextPos++
		}

		// An area that outranks the one under the cursor becomes the next
		// allocation candidate.
		if r.nextPos < len(r.ordered) && area.Priority > r.ordered[r.nextPos].Priority {
			r.nextPos = pos
		}
	}
}

// unregister removes area from the priority-ordered allocation list,
// preserving round-robin sanity, but deliberately leaves it resolvable
// via byIndex: deactivation's drain phase still needs free()/duplicate()/
// lookup() to reach an area that is no longer a candidate for fresh
// allocation (spec.md §4.G phase 1 only says "remove from the registry",
// meaning the allocator's ordering — outstanding entries into it are not
// invalidated until destroy()). Must be called with the lock held. It
// does not touch totalFree; callers manage that explicitly because
// deactivation's accounting happens before removal.
func (r *Registry) unregister(area *Area) {
	pos := r.indexOf(area)
	if pos < 0 {
		return
	}

	r.ordered = append(r.ordered[:pos], r.ordered[pos+1:]...)

	if len(r.ordered) == 0 {
		r.nextPos = 0
	} else if r.nextPos > pos || r.nextPos >= len(r.ordered) {
		r.nextPos = r.nextPos % len(r.ordered)
	}
}

// unlinkIndex drops area's final byIndex resolvability, called only once
// destroy() has actually freed its extent list and reference table
// (spec.md §4.G phase 5): after this, free()/duplicate()/lookup() against
// a stale entry correctly report CorruptSlot/NotActive instead of
// touching freed state. Must be called with the lock held.
func (r *Registry) unlinkIndex(area *Area) {
	delete(r.byIndex, area.Index)
}

// reinsert puts area back into the ordered list at a position consistent
// with its original Priority/seq — used by drain rollback (spec.md §4.G
// "Rollback": "re-insert the area into the registry at its original
// priority"). Must be called with the lock held.
func (r *Registry) reinsert(area *Area) {
	r.byIndex[area.Index] = area

	pos := sort.Search(len(r.ordered), func(i int) bool {
		o := r.ordered[i]
		if o.Priority != area.Priority {
			return o.Priority < area.Priority
		}

		return o.seq > area.seq
	})

	r.ordered = append(r.ordered, nil)
	copy(r.ordered[pos+1:], r.ordered[pos:])
	r.ordered[pos] = area
}

func (r *Registry) indexOf(area *Area) int {
	for i, a := range r.ordered {
		if a == area {
			return i
		}
	}

	return -1
}

// byAreaIndex resolves an Entry's area index to its Area in O(1), per
// spec.md §4.D "Lookups from an entry to an area are O(1) via the area
// index."
func (r *Registry) byAreaIndex(idx uint32) (*Area, bool) {
	a, ok := r.byIndex[idx]
	return a, ok
}

// leastPriority returns one less than the lowest currently-registered
// priority, for the default "least_priority--" assignment of spec.md §4.F
// step 9. The floor is 0, so with no areas registered (or only areas at
// priority 0 or above) it returns -1: the first default-priority area gets
// -1, the next -2, and so on, each strictly below every area already
// registered. Must be called with the lock held.
func (r *Registry) leastPriority() int32 {
	min := int32(0)

	for _, a := range r.ordered {
		if a.Priority < min {
			min = a.Priority
		}
	}

	return min - 1
}

// totals returns (free, total) per spec.md §6 totals().
func (r *Registry) totals() (free, total uint64) {
	for _, a := range r.ordered {
		total += uint64(a.Pages)
	}

	return r.totalFree, total
}

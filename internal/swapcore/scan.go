package swapcore

// scanArea implements the within-area allocation scan of spec.md §4.B.
// Caller holds the registry lock; scanArea may release and re-acquire it
// (via reg.unlock/reg.lock) while probing for a fresh empty cluster, and
// always re-validates any candidate it found unlocked before returning it.
// It returns (offset, true) on success, or (0, false) if the area has no
// free slot at all.
func (reg *Registry) scanArea(area *Area, cfg Config, budget *iterationBudget) (uint32, bool) {
	if area.clusterNr == 0 {
		if area.freeSlots() >= cfg.ClusterSize {
			if start, ok := reg.findEmptyClusterUnlocked(area, cfg.ClusterSize, budget); ok {
				// The scan ran unlocked; re-validate before committing.
				if start <= area.highestBit && area.refs.IsFree(start) {
					area.clusterNxt = start
					area.clusterNr = cfg.ClusterSize - 1

					return reg.takeOffset(area, start)
				}
			}
		}

		return reg.scanLowestFree(area, budget)
	}

	offset := area.clusterNxt
	if offset > area.highestBit || offset >= area.Max || !area.refs.IsFree(offset) {
		// The pre-found cluster ran into a slot no longer free (e.g. a
		// concurrent scan of the same area raced us, or highestBit moved).
		// Abandon the rest of the cluster and fall back.
		area.clusterNr = 0
		return reg.scanLowestFree(area, budget)
	}

	area.clusterNr--

	return reg.takeOffset(area, offset)
}

// takeOffset commits offset as the chosen allocation: marks it live in the
// area's bookkeeping. Caller holds the registry lock.
func (reg *Registry) takeOffset(area *Area, offset uint32) (uint32, bool) {
	area.markAllocated(offset)
	return offset, true
}

// scanLowestFree scans from lowestBit upward for the first free slot,
// entirely under the registry lock (it is the fallback path used when no
// cluster-sized run of free slots exists, so it is expected to be cheap:
// lowestBit already excludes any prefix known to be fully allocated).
func (reg *Registry) scanLowestFree(area *Area, budget *iterationBudget) (uint32, bool) {
	if area.isFull() {
		return 0, false
	}

	for o := area.lowestBit; o <= area.highestBit; o++ {
		if area.refs.IsFree(o) {
			return reg.takeOffset(area, o)
		}

		budget.tick()
	}

	return 0, false
}

// findEmptyClusterUnlocked scans for `size` consecutive free slots starting
// at or after area.lowestBit, releasing the registry lock for the
// (potentially long) duration of the scan per spec.md §4.B ("release the
// global lock for this scan, re-acquire after"). The scan itself reads
// lock-free atomics (RefTable), so it cannot tear; it can only observe a
// stale view, which is why scanArea re-validates the first offset of any
// cluster this returns before committing to it.
func (reg *Registry) findEmptyClusterUnlocked(area *Area, size uint32, budget *iterationBudget) (uint32, bool) {
	lowest, highest, max := area.lowestBit, area.highestBit, area.Max

	area.beginScan()
	reg.unlock()

	defer func() {
		reg.lock()
		area.endScan()
	}()

	if highest < lowest || highest >= max {
		return 0, false
	}

	run := uint32(0)
	start := lowest

	for o := lowest; o <= highest; o++ {
		if area.refs.IsFree(o) {
			if run == 0 {
				start = o
			}

			run++

			if run == size {
				return start, true
			}
		} else {
			run = 0
		}

		budget.tick()
	}

	return 0, false
}

// ValidNeighbors implements spec.md §4.B's read-ahead hint: a maximal
// sub-range of consecutive allocated, non-BAD slots within the same
// power-of-two cluster window around entry's offset. SPEC_FULL §3 records
// that the original bounds this to a single cluster-aligned window rather
// than an unbounded scan, so very large clusters cannot make one fault
// trigger unboundedly large read-ahead.
func (a *Area) ValidNeighbors(offset uint32, window uint32) (start uint32, count uint32) {
	if window == 0 {
		window = 1
	}

	winStart := (offset / window) * window
	if winStart < 1 {
		winStart = 1
	}

	winEnd := winStart + window
	if winEnd > a.Max {
		winEnd = a.Max
	}

	// Expand backward from offset to the start of the live run.
	s := offset
	for s > winStart && a.refs.IsLive(s-1) {
		s--
	}

	// Expand forward from offset to the end of the live run.
	e := offset + 1
	for e < winEnd && a.refs.IsLive(e) {
		e++
	}

	return s, e - s
}

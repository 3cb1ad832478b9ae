package swapcore

import (
	"context"

	"github.com/virtmemio/swapcore/internal/errs"
)

// Deactivate implements spec.md §4.G. cancel may be nil; when supplied,
// its Canceled() is polled between slots (spec.md §5 "Cancellation").
func (m *Manager) Deactivate(ctx context.Context, path string, cancel Canceler) error {
	if err := m.actMu.Lock(ctx); err != nil {
		return err
	}
	defer m.actMu.Unlock()

	if m.reclaim == nil {
		return errs.New(errs.CategoryNotPermitted, "NO_RECLAIMER", "manager has no Reclaimer configured", nil)
	}

	area, ok := m.activeByPath(path)
	if !ok {
		return errs.NotActive(path)
	}

	origPriority, err := m.quiesce(ctx, area)
	if err != nil {
		return err
	}

	if err := m.drainLiveSlots(ctx, area, cancel); err != nil {
		m.rollback(area, origPriority)
		return err
	}

	m.waitForScans(ctx, area)

	// Phase 4: no reader can still be mid-unplug against this area once
	// we have taken and released the gate in write mode.
	m.unplug.Drain()

	return m.destroy(path, area)
}

// quiesce implements phase 1: verify headroom, pull the area out of the
// registry, and stop new allocations from landing on it.
func (m *Manager) quiesce(ctx context.Context, area *Area) (int32, error) {
	m.reg.lock()
	defer m.reg.unlock()

	if m.reserver != nil {
		if err := m.reserver.ReserveMemory(ctx, area.Pages); err != nil {
			return 0, errs.OutOfMemory("deactivate", area.Pages)
		}
	}

	origPriority := area.Priority

	m.reg.unregister(area)
	area.clearWriteOK()
	m.reg.totalFree -= uint64(area.Pages)

	return origPriority, nil
}

// rollback restores area to registered, ACTIVE state at its original
// priority and undoes the total_free_slots adjustment, per spec.md §4.G
// "Rollback".
func (m *Manager) rollback(area *Area, origPriority int32) {
	m.reg.lock()
	defer m.reg.unlock()

	area.Priority = origPriority
	area.setFlags(FlagActive)
	m.reg.reinsert(area)
	m.reg.totalFree += uint64(area.Pages)
}

// drainLiveSlots implements phase 2: one circular pass over the slot
// table starting from the area's persisted drain cursor (SPEC_FULL §3:
// this survives a rolled-back attempt so a retry starts where the last one
// left off; the pass still visits every offset once, wrapping around).
func (m *Manager) drainLiveSlots(ctx context.Context, area *Area, cancel Canceler) error {
	budget := newIterationBudget(m.cfg.LatencyQuantum, m.yield)

	total := area.Max - 1

	start := area.drainCursor
	if start < 1 || start >= area.Max {
		start = 1
	}

	offset := start

	for visited := uint32(0); visited < total; visited++ {
		if cancel != nil && cancel.Canceled() {
			return errs.Interrupted("deactivate")
		}

		if err := m.drainOffset(ctx, area, offset); err != nil {
			return err
		}

		area.drainCursor = offset
		budget.tick()

		offset++
		if offset >= area.Max {
			offset = 1
		}
	}

	return nil
}

// drainOffset clears one slot, retrying while the reclaim callback asks
// for it (a concurrent faulter advanced the counter mid-reclaim) up to
// cfg.DrainRetryLimit times, per DESIGN.md's resolution of spec.md §9's
// open question about pathological re-fault schedules.
func (m *Manager) drainOffset(ctx context.Context, area *Area, offset uint32) error {
	for attempt := 0; ; attempt++ {
		m.reg.lock()

		if area.refs.IsSaturated(offset) {
			area.refs.resetSaturated(offset)
			m.logf("swapcore: drain: area#%d offset=%d counter was saturated, reset to 1", area.Index, offset)
		}

		live := area.refs.IsLive(offset)

		m.reg.unlock()

		if !live {
			return nil
		}

		if attempt > m.cfg.DrainRetryLimit {
			return errs.Interrupted("deactivate")
		}

		outcome, err := m.reclaimOne(ctx, area, offset)
		if err != nil {
			return err
		}

		switch outcome {
		case ReclaimOK, ReclaimRetry:
			continue
		case ReclaimOutOfMemory:
			return errs.OutOfMemory("deactivate", 1)
		case ReclaimInterrupted:
			return errs.Interrupted("deactivate")
		default:
			return nil
		}
	}
}

// reclaimOne drives one reclaim_slot call plus, per spec.md §4.G phase 2,
// the write-back-and-evict fixup when a concurrent faulter advanced the
// counter back above 1 during the callback.
func (m *Manager) reclaimOne(ctx context.Context, area *Area, offset uint32) (ReclaimOutcome, error) {
	entry := NewEntry(area.Index, offset)

	var page Page

	if m.pageIO != nil {
		p, err := m.pageIO.ReadSwapSlotIntoPage(ctx, entry)
		if err != nil {
			return ReclaimOutOfMemory, err
		}

		page = p
	}

	outcome, err := m.reclaim.ReclaimSlot(ctx, entry, page)
	if err != nil || outcome != ReclaimOK {
		return outcome, err
	}

	m.reg.lock()
	stillLive := area.refs.IsLive(offset)
	count := area.refs.Get(offset)
	m.reg.unlock()

	if stillLive && count > 1 {
		if err := m.reclaim.WriteBackAndEvictFromCache(ctx, entry, page); err != nil {
			return ReclaimRetry, err
		}
	}

	return ReclaimOK, nil
}

// waitForScans implements phase 3: cut short any new cluster scan by
// setting the full sentinel, then spin until every in-flight one drains.
func (m *Manager) waitForScans(ctx context.Context, area *Area) {
	m.reg.lock()
	area.highestBit = 0
	m.reg.unlock()

	for area.scansInFlight() > 0 {
		m.yield()
	}
}

// destroy implements phase 5: release the backing and forget the area.
func (m *Manager) destroy(path string, area *Area) error {
	m.mu.Lock()
	delete(m.active, path)
	m.mu.Unlock()

	m.reg.lock()
	m.reg.unlinkIndex(area)
	m.reg.unlock()

	area.setFlags(FlagNone)

	restoreErr := area.backing.RestoreBlockSize(area.backing.OriginalBlockSize())
	closeErr := area.backing.Close()

	m.logf("swapcore: deactivated %s (area#%d)", path, area.Index)

	if restoreErr != nil {
		return restoreErr
	}

	return closeErr
}

package swapcore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/virtmemio/swapcore/internal/errs"
)

// DefaultSlotSize is the conventional slot (and header-slot) size used
// when an ActivateRequest doesn't override it, matching the host page
// size on the overwhelming majority of deployments.
const DefaultSlotSize = 4096

// Manager is the public facade of the core: it composes the registry
// (E), the activation mutex, and the I/O unplug gate (H), and exposes the
// eight operations of spec.md §6. It is the Go analogue of the teacher's
// RegionAllocator + Region pairing, generalized from byte-range regions to
// fixed-size swap slots spread across possibly many backing areas.
type Manager struct {
	reg *Registry

	actMu  chanMutex // activation mutex (§4.H lock #1)
	unplug *UnplugGate

	cfg    Config
	yield  YieldFunc
	logger *log.Logger

	reserver MemoryReserver
	reclaim  Reclaimer
	opener   BackingOpener
	pageIO   PageIO

	// mu guards active, a side index from backing path to Area kept only
	// for the AlreadyActive check and for listing; it is deliberately
	// separate from the registry lock since it's consulted outside the
	// allocator's hot path.
	mu     sync.RWMutex
	active map[string]*Area
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithConfig overrides the default tunables.
func WithConfig(cfg Config) Option { return func(m *Manager) { m.cfg = cfg } }

// WithYield overrides the default cooperative-yield hook.
func WithYield(y YieldFunc) Option { return func(m *Manager) { m.yield = y } }

// WithLogger sets the logger used for the two spec-mandated log events
// (saturation reset during drain, and CorruptSlot detection) as well as
// for activation, deactivation and duplicate saturation. A nil logger
// (the default) silently drops them, matching the teacher's own
// log-nowhere-by-default posture outside its diagnostics subsystem.
func WithLogger(l *log.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithMemoryReserver installs the reserve_memory callback deactivation
// consults (spec.md §6).
func WithMemoryReserver(r MemoryReserver) Option { return func(m *Manager) { m.reserver = r } }

// WithReclaimer installs the reclaim_slot callback drain drives.
func WithReclaimer(r Reclaimer) Option { return func(m *Manager) { m.reclaim = r } }

// WithBackingOpener installs the opener Activate/Deactivate use to reach
// the actual backing store. Required before Activate can succeed; tests
// supply a fixture, production wiring supplies blockprobe's.
func WithBackingOpener(o BackingOpener) Option { return func(m *Manager) { m.opener = o } }

// WithPageIO installs the callback drain uses to read a slot's contents
// into a page before handing it to the Reclaimer. Without one, drain
// passes a nil Page and relies on the Reclaimer to have its own I/O path
// (spec.md §6 documents read_swap_slot_into_page as a separate external
// callback from reclaim_slot; some integrations fold the two together).
func WithPageIO(p PageIO) Option { return func(m *Manager) { m.pageIO = p } }

// NewManager creates an empty Manager ready to Activate areas into.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		reg:    NewRegistry(),
		actMu:  newChanMutex(),
		unplug: NewUnplugGate(),
		cfg:    DefaultConfig(),
		yield:  defaultYield,
		active: make(map[string]*Area),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// Allocate picks one free slot from some active area, per spec.md §4.B.
func (m *Manager) Allocate() (Entry, bool) {
	m.reg.lock()

	n := len(m.reg.ordered)
	if n == 0 {
		m.reg.unlock()
		return NoEntry, false
	}

	budget := newIterationBudget(m.cfg.LatencyQuantum, m.yield)

	maxVisits := m.cfg.MaxWraps * n
	if maxVisits <= 0 {
		maxVisits = 2 * n
	}

	pos := m.reg.nextPos
	if pos >= n {
		pos = 0
	}

	for visited := 0; visited < maxVisits; visited++ {
		area := m.reg.ordered[pos]

		if area.isWriteOK() && !area.isFull() {
			if offset, ok := m.reg.scanArea(area, m.cfg, budget); ok {
				m.reg.totalFree--
				m.reg.nextPos = m.nextPosAfter(pos)

				entry := NewEntry(area.Index, offset)

				m.reg.unlock()

				return entry, true
			}
		}

		pos = (pos + 1) % n
	}

	m.reg.unlock()

	return NoEntry, false
}

// nextPosAfter implements spec.md §4.B's round-robin rule: "after an
// allocation from area X in band B, the next attempt starts at X's
// successor. When the successor enters a lower band (or the end of list),
// wrap to the head of the registry." Caller holds the registry lock.
func (m *Manager) nextPosAfter(pos int) int {
	n := len(m.reg.ordered)
	if n == 0 {
		return 0
	}

	succ := pos + 1
	if succ >= n {
		return 0
	}

	if m.reg.ordered[succ].Priority != m.reg.ordered[pos].Priority {
		return 0
	}

	return succ
}

// Free drops one reference from entry (spec.md §4.B free()).
// CorruptSlot conditions are logged and ignored, not returned as errors,
// matching spec.md §7's propagation rule for that category.
func (m *Manager) Free(entry Entry) {
	m.reg.lock()
	defer m.reg.unlock()

	area, ok := m.reg.byAreaIndex(entry.AreaIndex())
	if !ok {
		m.logf("swapcore: free: %v", errs.CorruptSlot(entry.AreaIndex(), entry.Offset(), "unregistered area index"))
		return
	}

	offset := entry.Offset()

	switch area.refs.free(offset) {
	case freeToZero:
		area.markFreed(offset)
		m.reg.totalFree++
		m.preferArea(area)
	case freeSticky, freeDropped:
		// nothing further to do
	case freeCorrupt:
		m.logf("swapcore: free: %v", errs.CorruptSlot(area.Index, offset, "counter was already free or bad"))
	}
}

// preferArea implements spec.md §4.B free()'s cursor nudge: "if this
// area's priority outranks the current allocator cursor's area, update the
// cursor so subsequent allocations prefer this area." Caller holds the
// registry lock.
func (m *Manager) preferArea(area *Area) {
	n := len(m.reg.ordered)
	if n == 0 {
		return
	}

	pos := m.reg.nextPos
	if pos >= n {
		pos = 0
	}

	cur := m.reg.ordered[pos]
	if area.Priority > cur.Priority {
		// An area mid-drain is no longer in the ordering; leave the cursor.
		if idx := m.reg.indexOf(area); idx >= 0 {
			m.reg.nextPos = idx
		}
	}
}

// Duplicate increments entry's reference count, saturating rather than
// overflowing (spec.md §4.B duplicate()).
func (m *Manager) Duplicate(entry Entry) error {
	m.reg.lock()
	defer m.reg.unlock()

	area, ok := m.reg.byAreaIndex(entry.AreaIndex())
	if !ok {
		err := errs.CorruptSlot(entry.AreaIndex(), entry.Offset(), "unregistered area index")
		m.logf("swapcore: duplicate: %v", err)

		return err
	}

	offset := entry.Offset()

	switch area.refs.duplicate(offset) {
	case dupOK:
		return nil
	case dupSaturated:
		// Saturation still reports success (spec.md §4.B); the event is
		// internally noted but not returned as an error.
		m.logf("swapcore: duplicate: slot area=%d offset=%d saturated", area.Index, offset)
		return nil
	default:
		err := errs.CorruptSlot(area.Index, offset, "counter was free or bad")
		m.logf("swapcore: duplicate: %v", err)

		return err
	}
}

// Lookup resolves entry to its absolute device block (spec.md §4.A).
// The registry lock is held across area.Lookup, not just the byAreaIndex
// resolution: ExtentMap.Lookup advances a plain int cursor to accelerate
// sequential lookups, and two concurrent Lookup calls against the same
// area are permitted by §5's ordering guarantees, so releasing the lock
// first would race on that cursor.
func (m *Manager) Lookup(entry Entry) (uint64, error) {
	m.reg.lock()
	defer m.reg.unlock()

	area, ok := m.reg.byAreaIndex(entry.AreaIndex())
	if !ok {
		return 0, errs.NotActive(fmt.Sprintf("area#%d", entry.AreaIndex()))
	}

	return area.Lookup(entry.Offset())
}

// ValidNeighbors implements spec.md §6's read-ahead hint.
func (m *Manager) ValidNeighbors(entry Entry) (start uint32, count uint32) {
	m.reg.lock()
	area, ok := m.reg.byAreaIndex(entry.AreaIndex())
	m.reg.unlock()

	if !ok {
		return 0, 0
	}

	window := m.cfg.ClusterSize
	if window == 0 {
		window = 1
	}

	s, c := area.ValidNeighbors(entry.Offset(), window)

	return s, c
}

// Totals implements spec.md §6 totals().
func (m *Manager) Totals() (free, total uint64) {
	m.reg.lock()
	defer m.reg.unlock()

	return m.reg.totals()
}

// chanMutex is a mutex implemented with a buffered channel instead of
// sync.Mutex so that Activate/Deactivate can select on ctx.Done() while
// waiting for it, matching spec.md §5's requirement that activation and
// deactivation (but not allocate/free/duplicate/lookup) are allowed to
// sleep and be the only two operations serialized against each other.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}

	return c
}

func (c chanMutex) Lock(ctx context.Context) error {
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c chanMutex) Unlock() { c <- struct{}{} }

package swapcore

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/virtmemio/swapcore/internal/errs"
)

// ArchitecturalMaxSlots bounds `max` independent of whatever last_slot the
// header claims (spec.md §4.F step 5): Entry.Offset is a uint32, so no
// area can ever expose more slots than that field can address, well
// short of the 48 bits actually reserved for it in the packed word.
const ArchitecturalMaxSlots = ^uint32(0)

// ActivateRequest bundles activation's inputs (spec.md §4.F: "a path to a
// backing store and flags containing an optional explicit priority").
type ActivateRequest struct {
	Path string

	// Priority is explicit flags.priority; ExplicitPriority must be set for
	// it to be honored, otherwise the default least_priority-- rule applies
	// (step 9).
	Priority         int32
	ExplicitPriority bool

	// SlotSize is the fixed slot size (and header-slot size) this backing
	// store is formatted for. Real deployments fix this at mkswap time;
	// tests vary it to exercise small areas cheaply.
	SlotSize uint32
}

// BackingOpener is the narrow seam activation needs over a concrete
// blockprobe.Device: open the path, read its raw header bytes, read a
// block map, and unwind cleanly on any failure. Manager is constructed
// with a BackingOpener so tests can supply an in-memory fixture instead
// of a real device or file.
type BackingOpener interface {
	// Open opens path and returns a Backing plus however many total
	// bytes are available on it, without yet interpreting any of its
	// contents.
	Open(ctx context.Context, path string, slotSize uint32) (Backing, uint64, error)
	// ReadHeader reads the first slotSize bytes of the already-opened
	// backing.
	ReadHeader(ctx context.Context, b Backing, slotSize uint32) ([]byte, error)
	// Bmap resolves file-relative block index blockIndex to an absolute
	// device block, or 0 for a hole. Block-device backings never call
	// this (§4.A installs a single identity extent for them).
	Bmap(ctx context.Context, b Backing, blockIndex uint64) (uint64, error)
}

// Activate implements spec.md §4.F. It is the only Manager method besides
// Deactivate that may sleep (header read, block-map probe) and the only
// two serialized against each other via actMu.
func (m *Manager) Activate(ctx context.Context, req ActivateRequest) error {
	if err := m.actMu.Lock(ctx); err != nil {
		return err
	}
	defer m.actMu.Unlock()

	if m.opener == nil {
		return errs.New(errs.CategoryNotPermitted, "NO_OPENER", "manager has no BackingOpener configured", nil)
	}

	if _, already := m.activeByPath(req.Path); already {
		return errs.AlreadyActive(req.Path)
	}

	slotSize := req.SlotSize
	if slotSize == 0 {
		slotSize = DefaultSlotSize
	}

	// Step 1: reserve a descriptor index (marks USED implicitly — the
	// index isn't visible to allocate() until step 10's registry insert).
	m.reg.lock()
	index := m.reg.allocateIndex()
	m.reg.unlock()

	// Step 2: open the backing, forcing block size if it's a device.
	backing, sizeBytes, err := m.opener.Open(ctx, req.Path, slotSize)
	if err != nil {
		return fmt.Errorf("swapcore: activate %s: open: %w", req.Path, err)
	}

	area, err := m.buildArea(ctx, index, backing, sizeBytes, slotSize)
	if err != nil {
		_ = backing.Close()
		return err
	}

	// Step 9: priority assignment.
	m.reg.lock()

	if req.ExplicitPriority {
		area.Priority = req.Priority
	} else {
		area.Priority = m.reg.leastPriority()
	}

	// Step 10: atomically mark ACTIVE, insert, bump total_free_slots.
	area.setFlags(FlagActive)
	m.reg.register(area)

	m.reg.unlock()

	m.mu.Lock()
	m.active[req.Path] = area
	m.mu.Unlock()

	m.logf("swapcore: activated %s as area#%d pages=%d priority=%d", req.Path, area.Index, area.Pages, area.Priority)

	return nil
}

// buildArea runs steps 4–8: header validation, reference table, extent
// list, and cursor initialization. On any returned error the caller is
// responsible for closing backing; buildArea itself never leaves
// partially-built state reachable from the registry.
func (m *Manager) buildArea(ctx context.Context, index uint32, backing Backing, sizeBytes uint64, slotSize uint32) (*Area, error) {
	raw, err := m.opener.ReadHeader(ctx, backing, slotSize)
	if err != nil {
		return nil, fmt.Errorf("swapcore: read header: %w", err)
	}

	hdr, err := ParseHeader(slotSize, raw)
	if err != nil {
		return nil, err
	}

	physicalSlots := uint32(sizeBytes / uint64(slotSize))

	if hdr.LastSlot > physicalSlots {
		return nil, errs.InvalidHeader("last_slot exceeds backing's physical size",
			map[string]interface{}{"last_slot": hdr.LastSlot, "physical_slots": physicalSlots})
	}

	maxSlots := hdr.LastSlot
	if maxSlots > ArchitecturalMaxSlots {
		maxSlots = ArchitecturalMaxSlots
	}

	if maxSlots < 2 {
		return nil, errs.InvalidHeader("area has no usable slots after bounding last_slot", nil)
	}

	refs := NewRefTable(maxSlots)
	refs.MarkBad(0)

	seen := make(map[uint32]struct{}, len(hdr.BadSlots))

	for _, bad := range hdr.BadSlots {
		if bad == 0 || bad >= maxSlots {
			return nil, errs.InvalidHeader("bad_slots entry out of range", map[string]interface{}{"offset": bad})
		}

		if _, dup := seen[bad]; dup {
			return nil, errs.InvalidHeader("duplicate bad_slots entry", map[string]interface{}{"offset": bad})
		}

		seen[bad] = struct{}{}
		refs.MarkBad(bad)
	}

	extents, discoveredBad, err := m.buildExtents(ctx, backing, maxSlots, slotSize)
	if err != nil {
		return nil, err
	}

	for _, bad := range discoveredBad {
		if _, already := seen[bad]; already {
			continue
		}

		seen[bad] = struct{}{}
		refs.MarkBad(bad)
	}

	badCount := uint32(len(seen))

	area := newArea(index, backing, maxSlots, badCount, refs, extents)

	return area, nil
}

// buildExtents implements §4.A's construction half: a block-device
// backing gets one identity extent; a file backing is probed one slot
// offset at a time, and slots whose blocks are contiguous are merged into
// one extent. Any hole in the usable range rejects the activation with
// FileHasHoles. No alignment check is made and no run is discarded: the
// returned bad-slot list is always empty.
func (m *Manager) buildExtents(ctx context.Context, backing Backing, maxSlots, slotSize uint32) (*ExtentMap, []uint32, error) {
	if backing.IsBlockDevice() {
		return NewExtentMap([]Extent{{Start: 1, Length: maxSlots - 1, StartBlock: 1}}), nil, nil
	}

	type probed struct {
		offset uint32
		block  uint64
		hole   bool
	}

	results := make([]probed, maxSlots-1)

	parallelism := m.cfg.ProbeParallelism
	if parallelism < 1 {
		parallelism = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for o := uint32(1); o < maxSlots; o++ {
		o := o

		g.Go(func() error {
			block, err := m.opener.Bmap(gctx, backing, uint64(o))
			if err != nil {
				return fmt.Errorf("swapcore: bmap offset %d: %w", o, err)
			}

			results[o-1] = probed{offset: o, block: block, hole: block == 0}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	raw := make([]Extent, 0, maxSlots-1)

	var bad []uint32

	for _, r := range results {
		if r.hole {
			return nil, nil, errs.FileHasHoles(backing.Path(), int64(r.offset)*int64(slotSize))
		}

		raw = append(raw, Extent{Start: r.offset, Length: 1, StartBlock: r.block})
	}

	merged := mergeExtents(raw)

	return NewExtentMap(merged), bad, nil
}

// activeByPath looks up an active area by the path it was activated
// from, for step 3's AlreadyActive check and for Deactivate.
func (m *Manager) activeByPath(path string) (*Area, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.active[path]

	return a, ok
}

// sortedActivePaths returns every currently active backing path, sorted,
// for listing (§6's statistics/listing surface is out of scope for the
// core itself, but swapctl needs a stable order to iterate).
func (m *Manager) sortedActivePaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.active))
	for p := range m.active {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

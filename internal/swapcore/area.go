package swapcore

import (
	"sync/atomic"
)

// StateFlag captures an area's lifecycle state (spec.md §3 "State flags").
// SCANNING is not a bit here but a separate atomic counter on Area, since
// it must support multiple concurrent scans.
type StateFlag uint32

const (
	FlagNone    StateFlag = 0
	FlagUsed    StateFlag = 1 << 0
	FlagWriteOK StateFlag = 1 << 1
	FlagActive            = FlagUsed | FlagWriteOK
)

// Backing abstracts the identity of a registered backing store: a regular
// file or a block device, opened by activation and released by
// deactivation. Concrete implementations live in internal/vfs and
// internal/blockprobe; Area only needs to close it and to know its
// original block size for restoring on deactivation.
type Backing interface {
	Path() string
	Close() error
	IsBlockDevice() bool
	// OriginalBlockSize is the block size the device reported before
	// activation forced it to SlotSize; restored on deactivation. Regular
	// files report 0 (nothing to restore).
	OriginalBlockSize() uint32
	RestoreBlockSize(original uint32) error
}

// Area is one registered backing store: identity, priority, state, the
// bitmap-free allocator cursors, the reference table, and the extent map.
// It mirrors the shape of the teacher's Region/RegionHeader pair (identity
// + cursors + usage + child bookkeeping) but the cursors here are the
// lowest_bit/highest_bit/cluster_next/cluster_nr of spec.md §3 rather than
// a byte-offset free list, because slots are fixed-size and addressed by
// index, not by byte range.
type Area struct {
	Index    uint32
	Priority int32
	seq      uint64 // monotonic insertion sequence, breaks priority ties

	backing Backing
	refs    *RefTable
	extents *ExtentMap

	flags    atomic.Uint32
	scanning atomic.Int32 // in-flight scan() calls

	Max      uint32 // total slots including the header slot
	Pages    uint32 // usable slots = max - 1 - bad_count
	BadCount uint32

	lowestBit  uint32
	highestBit uint32
	clusterNxt uint32
	clusterNr  uint32

	inusePages uint32

	drainCursor uint32 // last offset drained; see SPEC_FULL §3
}

// newArea builds an Area in its post-activation-step-8 initial state
// (spec.md §4.F step 8); it is not yet inserted into a registry or marked
// ACTIVE.
func newArea(index uint32, backing Backing, max uint32, badCount uint32, refs *RefTable, extents *ExtentMap) *Area {
	a := &Area{
		Index:      index,
		backing:    backing,
		refs:       refs,
		extents:    extents,
		Max:        max,
		BadCount:   badCount,
		Pages:      max - 1 - badCount,
		lowestBit:  1,
		clusterNxt: 1,
		highestBit: max - 1,
	}
	a.flags.Store(uint32(FlagUsed))

	return a
}

func (a *Area) flagsSnapshot() StateFlag { return StateFlag(a.flags.Load()) }

func (a *Area) isActive() bool { return a.flagsSnapshot()&FlagActive == FlagActive }

func (a *Area) isWriteOK() bool { return a.flagsSnapshot()&FlagWriteOK != 0 }

func (a *Area) setFlags(f StateFlag) { a.flags.Store(uint32(f)) }

func (a *Area) clearWriteOK() { a.flags.Store(a.flags.Load() &^ uint32(FlagWriteOK)) }

// isFull reports the "full sentinel" of invariant 2: once every usable slot
// is in use, lowest_bit = max and highest_bit = 0.
func (a *Area) isFull() bool { return a.highestBit == 0 }

func (a *Area) freeSlots() uint32 { return a.Pages - a.inusePages }

// beginScan/endScan implement the SCANNING counter so deactivation can
// observe "no scans in flight" (spec.md §4.B, §4.G phase 3).
func (a *Area) beginScan()           { a.scanning.Add(1) }
func (a *Area) endScan()             { a.scanning.Add(-1) }
func (a *Area) scansInFlight() int32 { return a.scanning.Load() }

// Lookup resolves offset to a device block via the area's extent map.
func (a *Area) Lookup(offset uint32) (uint64, error) { return a.extents.Lookup(offset) }

// markAllocated records the bookkeeping side effects of handing out offset
// o, per spec.md §4.B "On picking offset o": counter to 1, advance the
// cluster cursor, adjust lowest/highest, bump inuse_pages, and flip the
// full sentinel if this exhausted the area. Caller holds the allocator
// lock.
//
// lowest_bit/highest_bit bound the range that may still contain a free
// slot (original_source/2.6.14/mm/swapfile.c keeps them as a simple ±1
// heuristic, not a tight bound recomputed by scanning): they only move
// when the allocated offset exactly equals the current boundary, and
// free() widens them again as needed (markFreed).
func (a *Area) markAllocated(o uint32) {
	a.refs.setLive(o)
	a.clusterNxt = o + 1

	if o == a.lowestBit {
		a.lowestBit++
	}

	if o == a.highestBit {
		a.highestBit--
	}

	a.inusePages++

	if a.inusePages == a.Pages {
		a.lowestBit = a.Max
		a.highestBit = 0
	}
}

// markFreed undoes the bookkeeping of markAllocated when offset o
// transitions back to zero references (spec.md §4.B free()).
func (a *Area) markFreed(o uint32) {
	if o < a.lowestBit {
		a.lowestBit = o
	}

	if o > a.highestBit {
		a.highestBit = o
	}

	a.inusePages--
}

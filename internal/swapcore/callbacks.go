package swapcore

import "context"

// Page is an opaque handle to a page of primary memory, as produced and
// consumed by the external collaborators this core never inspects
// (spec.md §1: page-table walking, reverse-map integration, and the page
// cache are explicitly out of scope). swapcore only ever passes Page
// values through to callbacks.
type Page interface{}

// PageIO performs the actual block I/O a slot's contents require. Neither
// method is invoked by swapcore's allocator path (allocate/free/duplicate/
// lookup never sleep, per spec.md §5); only drain's reclaim path and a
// caller's own read-ahead use them.
type PageIO interface {
	ReadSwapSlotIntoPage(ctx context.Context, entry Entry) (Page, error)
	WritePageToSwapSlot(ctx context.Context, page Page, entry Entry) error
}

// ReclaimOutcome is returned by Reclaimer.ReclaimSlot.
type ReclaimOutcome int

const (
	// ReclaimOK means every holder of entry now refers to page instead,
	// and the slot's reference count reflects that (driven to 0, or held
	// at 1 if a concurrent faulter is mid-fault — see spec.md §4.G).
	ReclaimOK ReclaimOutcome = iota
	// ReclaimRetry asks drain to requeue this slot: a holder advanced the
	// counter concurrently while the callback was running.
	ReclaimRetry
	// ReclaimOutOfMemory aborts the drain (spec.md §4.G: "if the callback
	// reports an out-of-memory ... condition, abort and roll back").
	ReclaimOutOfMemory
	// ReclaimInterrupted aborts the drain on a cancellation signal.
	ReclaimInterrupted
)

// Reclaimer brings a slot's contents into a page of primary memory and
// substitutes that page for every reference to (area, offset), per
// spec.md §6. It owns issuing the I/O and locating holders via reverse
// maps; it clears references via Manager.Free as it goes.
type Reclaimer interface {
	ReclaimSlot(ctx context.Context, entry Entry, page Page) (ReclaimOutcome, error)
	// WriteBackAndEvictFromCache is invoked when, after ReclaimSlot, the
	// counter is still greater than 1 (another holder faulted the slot in
	// concurrently): the spec asks the callback to write the page back to
	// its slot and drop it from the swap cache so the remaining holders
	// fault it in again (spec.md §4.G phase 2).
	WriteBackAndEvictFromCache(ctx context.Context, entry Entry, page Page) error
}

// MemoryReserver checks whether the system can accept n additional
// committed pages, used only at the start of deactivation (spec.md §4.G
// phase 1).
type MemoryReserver interface {
	ReserveMemory(ctx context.Context, pages uint32) error
}

// Canceler reports whether the calling administrative operation has been
// asked to stop (spec.md §5 "Cancellation": "the drain checks a
// per-caller signal flag between slots").
type Canceler interface {
	Canceled() bool
}

package swapcore

// Config holds the tunables of spec.md §6 ("Configuration constants").
// It is a plain struct with a DefaultConfig constructor, the same shape
// the teacher uses for internal/allocator.Config and internal/
// runtime.RegionPolicy, rather than a flag/env framework: swapcore is a
// library, not a process.
type Config struct {
	// ClusterSize is C, the number of consecutive allocations handed out
	// of a freshly found empty cluster before falling back to scanning
	// for a fresh one. Default 256, matching SWAPFILE_CLUSTER in
	// original_source/2.6.14/mm/swapfile.c.
	ClusterSize uint32

	// LatencyQuantum is L, the number of scan iterations between
	// cooperative yield points.
	LatencyQuantum int

	// MaxWraps bounds how many full passes allocate() makes over the
	// registry before giving up (spec.md §4.B: "traverse at most two full
	// wraps").
	MaxWraps int

	// ProbeParallelism bounds how many concurrent block-map probe workers
	// activation's extent-list construction may run (SPEC_FULL §2,
	// golang.org/x/sync/errgroup wiring). 0 or 1 disables fan-out.
	ProbeParallelism int

	// DrainRetryLimit bounds how many times drain may observe a slot
	// re-incremented back above 1 by a concurrent faulter before giving
	// up with Interrupted (DESIGN.md's resolution of the "Open question"
	// in spec.md §9 about pathological re-fault schedules).
	DrainRetryLimit int
}

// DefaultConfig returns the configuration spec.md §6 describes as default.
func DefaultConfig() Config {
	return Config{
		ClusterSize:      256,
		LatencyQuantum:   256,
		MaxWraps:         2,
		ProbeParallelism: 4,
		DrainRetryLimit:  3,
	}
}

// Package blockprobe probes backing-store geometry (device size, native
// block size) and filesystem block maps, the way activation's step 3
// (spec.md §4.F) needs to before it can build an extent map. The actual
// ioctls only exist on Linux; probe_other.go gives every other GOOS a
// regular-file fallback so the package still links.
package blockprobe

// Geometry is what activation needs to know about a backing store before
// it can lay out slots: its total size, and the block size it must be
// temporarily forced to (spec.md §4.F step 3) for the duration it is
// active.
type Geometry struct {
	SizeBytes    uint64
	BlockSize    uint32
	IsBlockDevice bool
}

// ProbeGeometry inspects the open file at path (already opened by the
// caller through internal/vfs) and reports its geometry.
func ProbeGeometry(path string, fd uintptr) (Geometry, error) {
	return probeGeometry(path, fd)
}

// SetBlockSize forces the device's block size to slotSize for the
// duration of activation (spec.md §4.F step 3), returning the size that
// was in effect beforehand so deactivation can restore it.
func SetBlockSize(path string, fd uintptr, slotSize uint32) (previous uint32, err error) {
	return setBlockSize(path, fd, slotSize)
}

//go:build linux

package blockprobe

import (
	"os"

	"golang.org/x/sys/unix"
)

// probeGeometry issues BLKGETSIZE64/BLKBSZGET against fd when path names
// a block device, and falls back to a regular stat otherwise (a
// preallocated swap file is a perfectly valid backing store per spec.md
// §1, just not one with a block size to negotiate).
func probeGeometry(path string, fd uintptr) (Geometry, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Geometry{}, err
	}

	if st.Mode()&os.ModeDevice == 0 {
		return Geometry{SizeBytes: uint64(st.Size()), BlockSize: 0, IsBlockDevice: false}, nil
	}

	size, err := unix.IoctlGetInt(int(fd), unix.BLKGETSIZE64)
	if err != nil {
		return Geometry{}, err
	}

	bsz, err := unix.IoctlGetInt(int(fd), unix.BLKBSZGET)
	if err != nil {
		return Geometry{}, err
	}

	return Geometry{SizeBytes: uint64(size), BlockSize: uint32(bsz), IsBlockDevice: true}, nil
}

func setBlockSize(path string, fd uintptr, slotSize uint32) (uint32, error) {
	previous, err := unix.IoctlGetInt(int(fd), unix.BLKBSZGET)
	if err != nil {
		// Not a block device: nothing to negotiate, nothing to restore.
		return 0, nil
	}

	if err := unix.IoctlSetPointerInt(int(fd), unix.BLKBSZSET, int(slotSize)); err != nil {
		return 0, err
	}

	return uint32(previous), nil
}

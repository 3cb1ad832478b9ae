//go:build linux

package blockprobe

import (
	"context"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FileBmapper probes a regular file's extent layout via FIBMAP, one
// filesystem block at a time, the way original_source/2.6.14/mm/swapfile.c's
// mapswap uses bmap() for file-backed swap areas.
//
// FIBMAP takes a single int32 in/out argument: the caller stores the
// logical file block number in it, and the kernel overwrites it in place
// with the physical device block number (or 0 for an unallocated hole).
// That in-place rewrite is why this can't go through the generic
// IoctlSetInt helpers, which only ever pass the value one way.
type FileBmapper struct {
	fd        uintptr
	blockSize uint32
}

func NewFileBmapper(fd uintptr, blockSize uint32) *FileBmapper {
	return &FileBmapper{fd: fd, blockSize: blockSize}
}

// Bmap returns the absolute device block number backing file block
// blockIndex, or 0 if that block is an unallocated hole.
func (b *FileBmapper) Bmap(ctx context.Context, blockIndex uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	block := int32(blockIndex)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.fd, uintptr(unix.FIBMAP), uintptr(unsafe.Pointer(&block)))
	if errno != 0 {
		return 0, errno
	}

	return uint64(block), nil
}

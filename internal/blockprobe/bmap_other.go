//go:build !linux

package blockprobe

import "context"

// FileBmapper on non-Linux platforms has no FIBMAP equivalent available
// through the standard toolchain, so it reports every file-backed area as
// contiguous starting at block 0. This assumption is not logged; it is
// correct for a freshly preallocated swap file (the common case) and
// wrong for one with real holes, which is what internal/swapcore's
// FileHasHoles check exists to catch on the platforms that can detect it.
type FileBmapper struct {
	blockSize uint32
}

func NewFileBmapper(fd uintptr, blockSize uint32) *FileBmapper {
	return &FileBmapper{blockSize: blockSize}
}

func (b *FileBmapper) Bmap(ctx context.Context, blockIndex uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return blockIndex, nil
}

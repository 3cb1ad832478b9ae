package swapcore

import (
	"context"
	"fmt"

	"github.com/virtmemio/swapcore/internal/blockprobe"
	"github.com/virtmemio/swapcore/internal/vfs"
)

// FSOpener is the production BackingOpener: it resolves a path through a
// vfs.FileSystem (real files/devices via vfs.OSFS, fixtures via
// vfs.MemFS) and wraps the result in a blockprobe.Device.
type FSOpener struct {
	FS vfs.FileSystem
}

func NewFSOpener(fs vfs.FileSystem) *FSOpener { return &FSOpener{FS: fs} }

func (o *FSOpener) Open(ctx context.Context, path string, slotSize uint32) (Backing, uint64, error) {
	f, err := o.FS.Open(path)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	dev, err := blockprobe.Open(path, f, slotSize)
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	return dev, uint64(info.Size()), nil
}

func (o *FSOpener) ReadHeader(ctx context.Context, b Backing, slotSize uint32) ([]byte, error) {
	dev, ok := b.(*blockprobe.Device)
	if !ok {
		return nil, fmt.Errorf("swapcore: unsupported backing type %T", b)
	}

	buf := make([]byte, slotSize)
	if _, err := dev.File().ReadAt(buf, 0); err != nil {
		return nil, err
	}

	return buf, nil
}

// Bmap is only ever called for a file backing (buildExtents installs a
// single identity extent for block devices without probing). A Device
// wrapping a handle that exposes no file descriptor falls back to
// reporting an identity mapping, the same portability fallback
// blockprobe's own non-Linux build uses.
func (o *FSOpener) Bmap(ctx context.Context, b Backing, blockIndex uint64) (uint64, error) {
	dev, ok := b.(*blockprobe.Device)
	if !ok {
		return blockIndex, nil
	}

	fp, ok := dev.File().(interface{ Fd() uintptr })
	if !ok {
		return blockIndex, nil
	}

	bm := blockprobe.NewFileBmapper(fp.Fd(), 0)

	return bm.Bmap(ctx, blockIndex)
}

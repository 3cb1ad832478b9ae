package blockprobe

import (
	"github.com/virtmemio/swapcore/internal/vfs"
)

// fileDescriptor is satisfied by *os.File; file systems that can't expose
// a raw descriptor (internal/vfs's MemFS, for instance) simply never
// match it, and Device falls back to treating the backing as an opaque
// regular file with no ioctl-able geometry.
type fileDescriptor interface {
	Fd() uintptr
}

// Device is the swapcore.Backing implementation activation constructs
// for every area: it owns the open vfs.File, remembers the block size it
// overrode (if any) so deactivation can restore it, and reports the
// geometry ProbeGeometry observed at open time.
//
// Device satisfies swapcore.Backing structurally; blockprobe does not
// import swapcore; to keep the storage layer ignorant of the allocator
// it backs, the same way the teacher's storage packages never import the
// runtime packages that consume them.
type Device struct {
	path string
	file vfs.File
	geo  Geometry
	prev uint32
}

// Open probes geometry and, if f names a block device, forces its block
// size to slotSize, recording the previous size for RestoreBlockSize.
func Open(path string, f vfs.File, slotSize uint32) (*Device, error) {
	var fd uintptr

	haveFd := false

	if fp, ok := f.(fileDescriptor); ok {
		fd = fp.Fd()
		haveFd = true
	}

	if haveFd {
		if err := flockExclusive(fd); err != nil {
			return nil, err
		}
	}

	var geo Geometry

	if haveFd {
		g, err := ProbeGeometry(path, fd)
		if err != nil {
			return nil, err
		}

		geo = g
	}

	d := &Device{path: path, file: f, geo: geo}

	if geo.IsBlockDevice {
		prev, err := SetBlockSize(path, fd, slotSize)
		if err != nil {
			return nil, err
		}

		d.prev = prev
	}

	return d, nil
}

func (d *Device) Path() string { return d.path }

func (d *Device) Close() error { return d.file.Close() }

func (d *Device) IsBlockDevice() bool { return d.geo.IsBlockDevice }

func (d *Device) OriginalBlockSize() uint32 { return d.prev }

func (d *Device) RestoreBlockSize(original uint32) error {
	if !d.geo.IsBlockDevice || original == 0 {
		return nil
	}

	var fd uintptr
	if fp, ok := d.file.(fileDescriptor); ok {
		fd = fp.Fd()
	}

	_, err := SetBlockSize(d.path, fd, original)

	return err
}

// File exposes the underlying handle for header and extent I/O; it is
// not part of swapcore.Backing, only blockprobe's own helpers and
// activation's header-slot read use it directly.
func (d *Device) File() vfs.File { return d.file }

// SizeBytes reports the geometry observed at Open.
func (d *Device) SizeBytes() uint64 { return d.geo.SizeBytes }

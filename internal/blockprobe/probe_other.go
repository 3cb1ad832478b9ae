//go:build !linux

package blockprobe

import "os"

// probeGeometry on non-Linux platforms only ever sees regular files: no
// portable block-device ioctl exists, so IsBlockDevice is always false
// and BlockSize 0 (nothing to restore on deactivation).
func probeGeometry(path string, fd uintptr) (Geometry, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Geometry{}, err
	}

	return Geometry{SizeBytes: uint64(st.Size()), BlockSize: 0, IsBlockDevice: false}, nil
}

func setBlockSize(path string, fd uintptr, slotSize uint32) (uint32, error) {
	return 0, nil
}

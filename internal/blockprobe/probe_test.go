package blockprobe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProbeGeometry_RegularFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "area.swap")

	if err := os.WriteFile(p, make([]byte, 4096*8), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	geo, err := ProbeGeometry(p, f.Fd())
	if err != nil {
		t.Fatal(err)
	}

	if geo.IsBlockDevice {
		t.Fatal("regular file reported as block device")
	}

	if geo.SizeBytes != 4096*8 {
		t.Fatalf("size = %d, want %d", geo.SizeBytes, 4096*8)
	}
}

func TestOpen_RegularFileBacking(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "area.swap")

	if err := os.WriteFile(p, make([]byte, 4096*4), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(p, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}

	d, err := Open(p, f, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if d.IsBlockDevice() {
		t.Fatal("regular file reported as block device")
	}

	if d.OriginalBlockSize() != 0 {
		t.Fatalf("OriginalBlockSize = %d, want 0 for a regular file", d.OriginalBlockSize())
	}

	if err := d.RestoreBlockSize(d.OriginalBlockSize()); err != nil {
		t.Fatal(err)
	}
}

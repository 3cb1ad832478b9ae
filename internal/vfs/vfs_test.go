package vfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSFS_CreateReadWrite(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()
	p := filepath.Join(dir, "a.swap")

	f, err := fsys.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 5)
	if _, err := f.Read(buf); err != nil {
		t.Fatal(err)
	}

	if string(buf) != "hello" {
		t.Fatalf("got %q", string(buf))
	}
}

func TestOSFS_WriteAtReadAt(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()
	p := filepath.Join(dir, "b.swap")

	f, err := fsys.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte("slot"), 4096); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 4096); err != nil {
		t.Fatal(err)
	}

	if string(buf) != "slot" {
		t.Fatalf("got %q", string(buf))
	}
}

func TestMemFS_ReadDirWalk(t *testing.T) {
	m := NewMem()
	_ = m.MkdirAll("/x/y", 0)

	f, _ := m.Create("/x/y/z.swap")
	_, _ = f.Write([]byte("1"))
	_ = f.Sync()

	ds, err := m.ReadDir("/x")
	if err != nil {
		t.Fatal(err)
	}

	if len(ds) == 0 {
		t.Fatal("expected entries")
	}

	var seen int
	if err := m.Walk("/", func(p string, d os.DirEntry, err error) error { seen++; return nil }); err != nil {
		t.Fatal(err)
	}

	if seen == 0 {
		t.Fatal("expected walked entries")
	}
}

func TestMemFS_WriteAtGrowsFile(t *testing.T) {
	m := NewMem()

	f, err := m.Create("/area.swap")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.WriteAt([]byte("tail"), 16); err != nil {
		t.Fatal(err)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}

	if info.Size() != 20 {
		t.Fatalf("size = %d, want 20", info.Size())
	}
}

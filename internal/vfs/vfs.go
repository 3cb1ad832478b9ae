package vfs

import (
	"io"
	"io/fs"
	"path"
)

// File is an open backing-store handle: activation reads the header slot
// through it. ReaderAt/WriterAt are required because slot access is
// always by absolute offset, never sequential.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderAt
	io.WriterAt
	io.Closer
	Stat() (fs.FileInfo, error)
	Sync() error
}

// FileSystem abstracts how a backing store's path is resolved to a File,
// so swapcore's activation path (internal/swapcore/activation.go) can run
// unmodified against a real filesystem or against an in-memory fixture in
// tests, the way the teacher isolates its own storage layer behind an
// interface rather than importing "os" directly.
type FileSystem interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	Mkdir(name string, perm fs.FileMode) error
	MkdirAll(name string, perm fs.FileMode) error
	Remove(name string) error
	RemoveAll(name string) error
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Walk(root string, fn func(fullPath string, d fs.DirEntry, err error) error) error
}

// Join and Clean are re-exported so callers never need to import path
// alongside vfs for the handful of path manipulations activation needs
// (resolving a configured directory of backing candidates, for instance).
func Join(elem ...string) string { return path.Join(elem...) }
func Clean(p string) string      { return path.Clean(p) }

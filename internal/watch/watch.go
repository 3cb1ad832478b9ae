// Package watch notices new backing-store candidates appearing in a
// configured directory, for the admin auto-activate feature described in
// SPEC_FULL.md §2: an operator drops a pre-formatted swap file into a
// watched directory and swapctl activates it without a restart.
package watch

import (
	"context"
	"time"

	"github.com/virtmemio/swapcore/internal/vfs"
)

// Op classifies the filesystem change that produced an Event.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Event names a path that changed and how.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Watcher is the narrow interface cmd/swapctl's auto-activate loop
// depends on; PollingWatcher and FSWatcher both satisfy it.
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Add(name string) error
	Remove(name string) error
	Close() error
}

// PollingWatcher is a portable, stat-based fallback for filesystems where
// fsnotify has no native backend (network mounts, some container
// overlays). It reports OpCreate the first time it sees a file and OpWrite
// when that file's ModTime advances; it never reports OpRemove or
// OpRename.
type PollingWatcher struct {
	fs   vfs.FileSystem
	evCh chan Event
	erCh chan error
	stop context.CancelFunc
}

func NewPollingWatcher(fs vfs.FileSystem) *PollingWatcher {
	return &PollingWatcher{fs: fs, evCh: make(chan Event, 64), erCh: make(chan error, 1)}
}

func (w *PollingWatcher) Events() <-chan Event { return w.evCh }
func (w *PollingWatcher) Errors() <-chan error { return w.erCh }

// Add and Remove are no-ops: Watch below is given its one directory
// up front. They exist only so PollingWatcher satisfies Watcher.
func (w *PollingWatcher) Add(name string) error    { return nil }
func (w *PollingWatcher) Remove(name string) error { return nil }

func (w *PollingWatcher) Close() error {
	if w.stop != nil {
		w.stop()
	}

	close(w.evCh)

	return nil
}

// Watch begins polling dir at interval, reporting an OpCreate Event the
// first time a regular file is seen and an OpWrite Event each time its
// ModTime advances past the last-observed value.
func (w *PollingWatcher) Watch(ctx context.Context, dir string, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	w.stop = cancel

	go w.loop(ctx, dir, interval)

	return nil
}

func (w *PollingWatcher) loop(ctx context.Context, dir string, interval time.Duration) {
	seen := make(map[string]time.Time)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(dir, seen)
		}
	}
}

func (w *PollingWatcher) poll(dir string, seen map[string]time.Time) {
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		select {
		case w.erCh <- err:
		default:
		}

		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		p := vfs.Join(dir, e.Name())

		info, err := w.fs.Stat(p)
		if err != nil {
			continue
		}

		last, known := seen[p]
		if !known {
			seen[p] = info.ModTime()
			w.emit(Event{Path: p, Op: OpCreate, Time: info.ModTime()})

			continue
		}

		if info.ModTime().After(last) {
			seen[p] = info.ModTime()
			w.emit(Event{Path: p, Op: OpWrite, Time: info.ModTime()})
		}
	}
}

func (w *PollingWatcher) emit(ev Event) {
	select {
	case w.evCh <- ev:
	default:
		// Slow consumer: drop rather than block the poll loop. A missed
		// auto-activate is recoverable on the next poll tick; a stalled
		// watcher is not.
	}
}

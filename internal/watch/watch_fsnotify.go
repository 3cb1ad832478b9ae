package watch

import (
	"github.com/fsnotify/fsnotify"
)

// FSWatcher is the native-notification Watcher, preferred over
// PollingWatcher whenever the host kernel supports inotify/kqueue/etc.
type FSWatcher struct {
	w   *fsnotify.Watcher
	evC chan Event
	erC chan error
}

func NewFSWatcher() (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FSWatcher{w: w, evC: make(chan Event, 128), erC: make(chan error, 1)}

	go fw.loop()

	return fw, nil
}

func (fw *FSWatcher) loop() {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}

			fw.evC <- Event{Path: ev.Name, Op: translate(ev.Op)}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}

			fw.erC <- err
		}
	}
}

func translate(op fsnotify.Op) Op {
	var out Op

	if op&fsnotify.Create != 0 {
		out |= OpCreate
	}

	if op&fsnotify.Write != 0 {
		out |= OpWrite
	}

	if op&fsnotify.Remove != 0 {
		out |= OpRemove
	}

	if op&fsnotify.Rename != 0 {
		out |= OpRename
	}

	return out
}

func (fw *FSWatcher) Events() <-chan Event     { return fw.evC }
func (fw *FSWatcher) Errors() <-chan error     { return fw.erC }
func (fw *FSWatcher) Add(name string) error    { return fw.w.Add(name) }
func (fw *FSWatcher) Remove(name string) error { return fw.w.Remove(name) }
func (fw *FSWatcher) Close() error             { return fw.w.Close() }

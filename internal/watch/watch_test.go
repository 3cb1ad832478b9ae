package watch

import (
	"context"
	"testing"
	"time"

	"github.com/virtmemio/swapcore/internal/vfs"
)

func TestPollingWatcher_DetectsNewFile(t *testing.T) {
	fsys := vfs.NewMem()
	_ = fsys.MkdirAll("/candidates", 0)

	w := NewPollingWatcher(fsys)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Watch(ctx, "/candidates", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)

		f, err := fsys.Create("/candidates/area0.swap")
		if err != nil {
			return
		}

		_, _ = f.Write([]byte("swap"))
		_ = f.Sync()
	}()

	select {
	case ev := <-w.Events():
		if ev.Path != "/candidates/area0.swap" {
			t.Fatalf("path = %q", ev.Path)
		}

		if ev.Op != OpCreate {
			t.Fatalf("op = %v, want OpCreate", ev.Op)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for create event")
	}
}

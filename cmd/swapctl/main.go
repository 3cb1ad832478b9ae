// Command swapctl is the administrative front end for swapcore: it
// activates and deactivates swap areas, reports allocator totals, and can
// watch a directory for newly-dropped, pre-formatted swap files and
// activate them automatically.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/virtmemio/swapcore/internal/cliutil"
	"github.com/virtmemio/swapcore/internal/swapcore"
	"github.com/virtmemio/swapcore/internal/vfs"
	"github.com/virtmemio/swapcore/internal/watch"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		jsonOutput := false
		for _, a := range args {
			if a == "--json" {
				jsonOutput = true
			}
		}
		cliutil.PrintVersion("swapctl", jsonOutput)
	case "activate":
		cmdActivate(args)
	case "deactivate":
		cmdDeactivate(args)
	case "totals":
		cmdTotals(args)
	case "watch":
		cmdWatch(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	cliutil.PrintUsage("swapctl", []cliutil.CommandInfo{
		{Name: "activate", Description: "activate a formatted swap area"},
		{Name: "deactivate", Description: "drain and deactivate a swap area"},
		{Name: "totals", Description: "print total/free slot counts"},
		{Name: "watch", Description: "auto-activate swap files dropped into a directory"},
	})
}

// newManager builds a fresh Manager for one subcommand. Each subcommand
// invocation of the CLI is its own process, so no registry state carries
// over between invocations; only "watch" keeps its manager open for
// longer than one call.
func newManager() *swapcore.Manager {
	m := swapcore.NewManager(
		swapcore.WithBackingOpener(swapcore.NewFSOpener(vfs.NewOS())),
		swapcore.WithMemoryReserver(alwaysReserver{}),
	)

	// forcedReclaimer needs to call back into m.Free, so it's wired in
	// after construction instead of passed as an Option at NewManager time.
	swapcore.WithReclaimer(&forcedReclaimer{m: m})(m)

	return m
}

func cmdActivate(args []string) {
	fs := flag.NewFlagSet("activate", flag.ExitOnError)
	priority := fs.Int("priority", 0, "explicit priority (higher is preferred for allocation)")
	explicit := fs.Bool("explicit-priority", false, "honor --priority instead of the default least-priority rule")
	slotSize := fs.Uint("slot-size", swapcore.DefaultSlotSize, "slot size in bytes, must match how the area was formatted")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: swapctl activate [OPTIONS] <path>")
		os.Exit(2)
	}

	m := newManager()

	req := swapcore.ActivateRequest{
		Path:             rest[0],
		Priority:         int32(*priority),
		ExplicitPriority: *explicit,
		SlotSize:         uint32(*slotSize),
	}

	if err := m.Activate(context.Background(), req); err != nil {
		cliutil.ExitWithError("activate %s: %v", rest[0], err)
	}

	free, total := m.Totals()
	fmt.Printf("activated %s (free=%d total=%d)\n", rest[0], free, total)
}

func cmdDeactivate(args []string) {
	fs := flag.NewFlagSet("deactivate", flag.ExitOnError)
	timeout := fs.Duration("timeout", 0, "abort the drain if it runs longer than this")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: swapctl deactivate [OPTIONS] <path>")
		os.Exit(2)
	}

	m := newManager()

	if err := m.Activate(context.Background(), swapcore.ActivateRequest{Path: rest[0]}); err != nil {
		cliutil.ExitWithError("deactivate %s: area isn't known to this process and couldn't be re-opened: %v", rest[0], err)
	}

	ctx := context.Background()

	if *timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	if err := m.Deactivate(ctx, rest[0], nil); err != nil {
		cliutil.ExitWithError("deactivate %s: %v", rest[0], err)
	}

	fmt.Printf("deactivated %s\n", rest[0])
}

func cmdTotals(args []string) {
	fs := flag.NewFlagSet("totals", flag.ExitOnError)
	_ = fs.Parse(args)

	m := newManager()

	free, total := m.Totals()
	fmt.Printf("free=%d total=%d\n", free, total)
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 2*time.Second, "polling interval")
	usePoll := fs.Bool("poll", false, "use polling instead of fsnotify")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: swapctl watch [OPTIONS] <dir>")
		os.Exit(2)
	}

	m := newManager()
	ctx, cancel := context.WithCancel(context.Background())

	defer cancel()

	var w watch.Watcher

	if *usePoll {
		pw := watch.NewPollingWatcher(vfs.NewOS())
		if err := pw.Watch(ctx, rest[0], *interval); err != nil {
			cliutil.ExitWithError("watch %s: %v", rest[0], err)
		}

		defer pw.Close()
		w = pw
	} else {
		fw, err := watch.NewFSWatcher()
		if err != nil {
			cliutil.ExitWithError("watch: %v", err)
		}

		defer fw.Close()

		if err := fw.Add(rest[0]); err != nil {
			cliutil.ExitWithError("watch %s: %v", rest[0], err)
		}

		w = fw
	}

	fmt.Printf("watching %s for new swap files\n", rest[0])

	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}

			if ev.Op != watch.OpCreate && ev.Op != watch.OpWrite {
				continue
			}

			if err := m.Activate(ctx, swapcore.ActivateRequest{Path: ev.Path}); err != nil {
				fmt.Fprintf(os.Stderr, "swapctl: auto-activate %s: %v\n", ev.Path, err)
				continue
			}

			fmt.Printf("auto-activated %s\n", ev.Path)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}

			fmt.Fprintf(os.Stderr, "swapctl: watch error: %v\n", err)
		}
	}
}

// forcedReclaimer is swapctl's default Reclaimer: the CLI has no holder
// tracking of its own (that lives in whatever virtual-memory system embeds
// swapcore), so an operator-initiated deactivate simply drops every live
// reference outright rather than faulting pages back in. Suitable for
// idle or administratively-quiesced areas, not for areas a live VM system
// is still depending on.
type forcedReclaimer struct {
	m *swapcore.Manager
}

func (r *forcedReclaimer) ReclaimSlot(ctx context.Context, entry swapcore.Entry, page swapcore.Page) (swapcore.ReclaimOutcome, error) {
	// A duplicated slot can hold up to CountMax references; Free only
	// drops one at a time, so clearing it outright means calling it until
	// the registry reports the slot no longer live.
	for i := 0; i < int(swapcore.CountMax)+1; i++ {
		r.m.Free(entry)
	}

	return swapcore.ReclaimOK, nil
}

func (r *forcedReclaimer) WriteBackAndEvictFromCache(ctx context.Context, entry swapcore.Entry, page swapcore.Page) error {
	return nil
}

// alwaysReserver reports unconditional headroom: swapctl doesn't own the
// host's memory accounting, so it defers the real check to whatever
// integration wires in swapcore.WithMemoryReserver for production use.
type alwaysReserver struct{}

func (alwaysReserver) ReserveMemory(ctx context.Context, pages uint32) error { return nil }

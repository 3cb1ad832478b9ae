//go:build linux

package blockprobe

import "golang.org/x/sys/unix"

// flockExclusive takes a non-blocking exclusive advisory lock on fd,
// layered on top of swapcore's own in-process AlreadyActive check
// (activation.go step 3): the registry only knows about areas *this*
// process has activated, while Flock additionally rejects a second
// process trying to activate the same backing store concurrently.
func flockExclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

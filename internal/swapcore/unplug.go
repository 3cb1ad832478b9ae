package swapcore

import "sync"

// UnplugGate is the single global reader-writer gate of spec.md §4.H: any
// thread performing block-device I/O routed through a slot acquires it in
// read mode for the duration of the unplug, and deactivation's phase 4
// acquires it once in write mode to guarantee no reader is still
// dereferencing a torn-down area. It must never be held while acquiring
// the allocator lock, since the unplug path may sleep; UnplugGate is
// therefore deliberately a bare sync.RWMutex with no reference back to
// Registry.
type UnplugGate struct {
	mu sync.RWMutex
}

// NewUnplugGate creates an unheld gate.
func NewUnplugGate() *UnplugGate { return &UnplugGate{} }

// RLock/RUnlock bracket an I/O unplug issued by a reader.
func (g *UnplugGate) RLock()   { g.mu.RLock() }
func (g *UnplugGate) RUnlock() { g.mu.RUnlock() }

// Drain acquires and immediately releases the gate in write mode,
// ensuring ordering against every in-flight reader (spec.md §4.G phase 4).
func (g *UnplugGate) Drain() {
	g.mu.Lock()
	g.mu.Unlock()
}

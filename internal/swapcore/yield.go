package swapcore

import "runtime"

// YieldFunc is the cooperative-preemption hook spec.md §9 requires:
// "implementations must expose a yield hook to honor [the latency
// requirement] regardless of whether the host runtime preempts." The
// allocator's inner scan loop and drain's slot walk call it every
// Config.LatencyQuantum iterations.
type YieldFunc func()

// defaultYield calls runtime.Gosched, matching Go's own cooperative
// scheduling primitive; callers that need a stronger guarantee (a real
// sleep, a context check) can supply their own via Manager's options.
func defaultYield() { runtime.Gosched() }

// iterationBudget tracks progress toward the next yield point, refreshed
// whenever it calls through.
type iterationBudget struct {
	quantum int
	count   int
	yield   YieldFunc
}

func newIterationBudget(quantum int, yield YieldFunc) *iterationBudget {
	if quantum <= 0 {
		quantum = 1
	}

	if yield == nil {
		yield = defaultYield
	}

	return &iterationBudget{quantum: quantum, yield: yield}
}

// tick advances the budget by one iteration and yields once the quantum is
// exhausted, resetting the counter (spec.md §4.B: "every ~256 iterations,
// voluntarily yield ... and refresh the latency budget").
func (b *iterationBudget) tick() {
	b.count++
	if b.count >= b.quantum {
		b.count = 0
		b.yield()
	}
}

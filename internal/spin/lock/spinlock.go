// Package lock implements busy-wait mutual exclusion locks for the
// simulated SMP runtime, together with their ownership debug tracker and
// the lockstat acquisition-statistics registry.
//
// A SpinLock guarantees at-most-one-holder semantics across CPUs. The lock
// word is touched exclusively through an atomic exchange, which also acts
// as the full memory barrier at both the acquire and release boundary:
// every memory effect inside the critical section is visible to the next
// acquirer in program order. Interrupt delivery on the owning CPU is masked
// for the whole time the lock is held (see cpu.PushOff/PopOff), so an
// interrupt handler on the same CPU can never deadlock against its own
// critical section.
//
// There is no fairness, no FIFO ordering and no blocking: Acquire spins on
// the exchange until it reads a free lock, and the first CPU to observe a
// zero wins. Critical sections protected by a SpinLock must therefore be
// short. None of these locks are reentrant; with debug checks enabled a
// re-acquisition or an illegal release is reported through the fatal
// handler instead of hanging.
//
// # Thread Safety
//
// All operations are safe for concurrent use from any number of CPUs. The
// debug owner and call-stack snapshot are written only by the holding CPU.
package lock

import (
	"sync/atomic"

	"github.com/kolkov/spinlock/internal/spin/callstack"
	"github.com/kolkov/spinlock/internal/spin/cpu"
	"github.com/kolkov/spinlock/internal/spin/fatal"
)

// debug gates the ownership tracker and the acquire/release defect checks.
//
// The checks cost two word reads per operation, cheap enough to default to
// on. The gated paths are structurally identical either way; disabling
// debug only skips the bookkeeping, it never changes locking behavior.
var debug atomic.Bool

func init() {
	debug.Store(true)
}

// SetDebug toggles the ownership debug tracker and returns the previous
// setting. With debug off, double-acquire and illegal release degrade to
// undefined behavior (in practice, a permanent deadlock).
func SetDebug(on bool) bool {
	prev := debug.Load()
	debug.Store(on)
	return prev
}

// SpinLock is a busy-wait mutual exclusion lock.
//
// The zero value is unusable; call Init (or New) before first use.
// Initializing a lock that is currently in use is undefined.
type SpinLock struct {
	// locked is the lock word: 0 free, 1 held. Read and written only
	// through atomic exchange (and atomic load in diagnostics), never by
	// ordinary load/store.
	locked uint32

	// name labels the lock in diagnostics and statistics records.
	name string

	// owner is the CPU between a completed acquisition and its matching
	// release, nil otherwise. Maintained only while debug is on. Atomic
	// because Holding may inspect it from a non-owning CPU.
	owner atomic.Pointer[cpu.CPU]

	// pcs is the call-stack snapshot of the current acquisition. Written
	// and cleared only by the holding CPU.
	pcs callstack.Trace

	// stat links the lock to its statistics record while tracking is
	// attached. Atomic: the hot path reads it while StopTracking detaches.
	stat atomic.Pointer[Record]
}

// New allocates and initializes a named lock.
func New(name string) *SpinLock {
	lk := new(SpinLock)
	lk.Init(name)
	return lk
}

// Init prepares the lock for first use: the lock word is cleared, the
// debug owner is empty and no statistics record is attached.
func (lk *SpinLock) Init(name string) {
	lk.name = name
	lk.owner.Store(nil)
	lk.pcs.Clear()
	lk.stat.Store(nil)
	atomic.SwapUint32(&lk.locked, 0)
}

// Name returns the label supplied at initialization.
func (lk *SpinLock) Name() string {
	return lk.name
}

// TryAcquire attempts a single acquisition without spinning.
//
// Interrupts are masked before the attempt. On failure the mask is popped
// back to the pre-call nesting depth and false is returned immediately; the
// calling CPU never waits.
func (lk *SpinLock) TryAcquire() bool {
	c := cpu.Current()
	c.PushOff()
	lk.locking(c)
	if atomic.SwapUint32(&lk.locked, 1) != 0 {
		c.PopOff()
		return false
	}
	lk.acquired(c)
	return true
}

// Acquire takes the lock, spinning until it is free.
//
// The exchange is atomic and serializing, so reads inside the critical
// section cannot be reordered before it. Holding a lock for a long time
// leaves other CPUs burning cycles here.
func (lk *SpinLock) Acquire() {
	c := cpu.Current()
	c.PushOff()
	lk.locking(c)
	for atomic.SwapUint32(&lk.locked, 1) != 0 {
	}
	lk.acquired(c)
}

// Release drops the lock and unmasks interrupts to the pre-acquire depth.
//
// The exit uses an exchange rather than a plain store so that writes inside
// the critical section cannot be reordered past the unlock.
func (lk *SpinLock) Release() {
	c := cpu.Current()
	lk.releasing(c)
	atomic.SwapUint32(&lk.locked, 0)
	c.PopOff()
}

// Holding reports whether the calling CPU holds the lock.
//
// Meaningful only while the debug tracker is enabled; with it off the
// owner is not recorded and Holding is always false.
func (lk *SpinLock) Holding() bool {
	return lk.holding(cpu.Current())
}

// OwnerTrace returns the call-stack snapshot of the current acquisition.
// Valid only on the holding CPU; the snapshot is cleared on release.
func (lk *SpinLock) OwnerTrace() callstack.Trace {
	return lk.pcs
}

func (lk *SpinLock) holding(c *cpu.CPU) bool {
	return atomic.LoadUint32(&lk.locked) != 0 && lk.owner.Load() == c
}

// locking runs before the exchange on both acquire paths. Catching a
// re-acquisition here, rather than after the spin, turns a guaranteed
// self-deadlock into a report that names the offending call site.
func (lk *SpinLock) locking(c *cpu.CPU) {
	if debug.Load() && lk.holding(c) {
		at := callstack.Capture(2)
		fatal.Fatalf("acquire: cpu%d re-acquiring %q\n%s", c.ID, lk.name, at.Format())
	}
}

// acquired completes the bookkeeping of a successful acquisition: debug
// ownership first, then the statistics counter. Must stay branch-cheap:
// it runs on every acquisition in the system.
func (lk *SpinLock) acquired(c *cpu.CPU) {
	if debug.Load() {
		lk.owner.Store(c)
		lk.pcs = callstack.Capture(2)
	}
	if collecting.Load() {
		if rec := lk.stat.Load(); rec != nil {
			atomic.AddUint64(&rec.counts[c.ID], 1)
		}
	}
}

// releasing validates and clears ownership before the lock word is dropped.
func (lk *SpinLock) releasing(c *cpu.CPU) {
	if debug.Load() {
		if !lk.holding(c) {
			fatal.Fatalf("release: cpu%d does not hold %q", c.ID, lk.name)
		}
		lk.pcs.Clear()
		lk.owner.Store(nil)
	}
}

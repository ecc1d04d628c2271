package cpu

import (
	"sync"

	"github.com/kolkov/spinlock/internal/spin/fatal"
)

// Binding state.
//
// A goroutine acquires exclusive use of one CPU context, either explicitly
// through Pin or lazily on its first Current call. Exclusive means
// exclusive: the per-CPU fields are unsynchronized by design, so two
// goroutines may never share a context.
var (
	// bindings maps goroutine ID -> *CPU. sync.Map because lookups on the
	// lock hot path vastly outnumber bind/unbind events.
	bindings sync.Map // int64 -> *CPU

	// poolMu protects cpus and freeIDs.
	poolMu  sync.Mutex
	cpus    []*CPU
	freeIDs []int
)

// Init configures a topology of n CPUs and discards all existing bindings.
//
// Every CPU starts with interrupts enabled and nesting depth zero. Init is
// meant for program startup and test setup; re-initializing while locks are
// held is a caller defect the package does not detect.
func Init(n int) {
	if n < 1 || n > MaxCPU {
		fatal.Fatalf("cpu: topology %d out of range [1, %d]", n, MaxCPU)
	}
	poolMu.Lock()
	defer poolMu.Unlock()

	cpus = make([]*CPU, n)
	freeIDs = make([]int, 0, n)
	for i := 0; i < n; i++ {
		cpus[i] = &CPU{ID: i, intrOn: true}
		freeIDs = append(freeIDs, i)
	}
	bindings = sync.Map{}
}

// Count returns the configured topology size.
func Count() int {
	poolMu.Lock()
	defer poolMu.Unlock()
	return len(cpus)
}

// Pin binds the calling goroutine to CPU id.
//
// Pinning an out-of-range CPU, a CPU bound to another goroutine, or pinning
// while already bound is fatal. The binding lasts until Unpin.
func Pin(id int) *CPU {
	gid := goroutineID()

	poolMu.Lock()
	defer poolMu.Unlock()

	if id < 0 || id >= len(cpus) {
		fatal.Fatalf("cpu: pin to cpu%d outside topology of %d", id, len(cpus))
	}
	if _, bound := bindings.Load(gid); bound {
		fatal.Fatalf("cpu: goroutine %d already bound", gid)
	}
	if !takeID(id) {
		fatal.Fatalf("cpu: cpu%d already bound", id)
	}
	c := cpus[id]
	bindings.Store(gid, c)
	return c
}

// Unpin releases the calling goroutine's CPU back to the idle pool.
// Unpinning while not bound is fatal; unpinning with a nonzero nesting
// depth would leak a masked region and is fatal too.
func Unpin() {
	gid := goroutineID()
	val, ok := bindings.Load(gid)
	if !ok {
		fatal.Fatalf("cpu: unpin of unbound goroutine %d", gid)
	}
	c := val.(*CPU)
	if c.noff != 0 {
		fatal.Fatalf("cpu: unpin of cpu%d with nesting depth %d", c.ID, c.noff)
	}
	bindings.Delete(gid)

	poolMu.Lock()
	freeIDs = append(freeIDs, c.ID)
	poolMu.Unlock()
}

// Current returns the CPU bound to the calling goroutine, lazily binding an
// idle CPU on first use.
//
// Lazy binding keeps the common "one worker goroutine per CPU" setup free
// of boilerplate. An exhausted pool is fatal rather than shared: handing
// one context to two goroutines would silently break the single-owner
// invariant of the nesting controller.
func Current() *CPU {
	gid := goroutineID()
	if val, ok := bindings.Load(gid); ok {
		return val.(*CPU)
	}

	poolMu.Lock()
	if len(cpus) == 0 {
		poolMu.Unlock()
		fatal.Fatalf("cpu: Current before Init")
	}
	if len(freeIDs) == 0 {
		poolMu.Unlock()
		fatal.Fatalf("cpu: no idle cpu for goroutine %d (topology %d)", gid, len(cpus))
	}
	id := freeIDs[0]
	freeIDs = freeIDs[1:]
	c := cpus[id]
	poolMu.Unlock()

	bindings.Store(gid, c)
	return c
}

// takeID removes id from freeIDs. Caller holds poolMu.
func takeID(id int) bool {
	for i, free := range freeIDs {
		if free == id {
			freeIDs = append(freeIDs[:i], freeIDs[i+1:]...)
			return true
		}
	}
	return false
}

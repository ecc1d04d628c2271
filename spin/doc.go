// Package spin implements busy-wait mutual exclusion for a simulated
// multi-processor runtime, with interrupt-nesting control, ownership debug
// tracking and an opt-in lock-statistics subsystem.
//
// # Quick Start
//
//	package main
//
//	import "github.com/kolkov/spinlock/spin"
//
//	var counter int
//
//	func main() {
//		spin.Init(4) // four simulated CPUs
//
//		lk := spin.New("counter")
//		lk.Acquire()
//		counter++
//		lk.Release()
//	}
//
// Each goroutine participating in locking is bound to one simulated CPU,
// either explicitly with [Pin] or lazily on its first lock operation.
// Acquiring a lock masks interrupt delivery on the binding CPU for the
// whole critical section, with push/pop nesting so nested critical sections
// compose; the original interrupt state is restored when the outermost
// section ends.
//
// # Locking Rules
//
// Locks are not reentrant and not fair. Acquire busy-waits: it never
// yields to a scheduler and never times out, so critical sections must be
// short and a lock that is never released stalls every CPU that touches
// it. TryAcquire never waits. With the debug tracker enabled (the
// default), re-acquiring a held lock or releasing a lock the calling CPU
// does not hold is reported as a fatal defect instead of deadlocking.
//
// # Lock Statistics
//
// The lockstat subsystem counts acquisitions per lock and per CPU:
//
//	spin.InitLockstat()          // attach the control channel once
//	spin.StartTracking(lk)       // register a record for lk
//	spin.StartCollection()       // open the global gate
//	...
//	buf := make([]byte, 64*spin.RecordSize)
//	n, _ := spin.ReadLockstat(buf, 0, uint32(len(buf)))
//	for i := 0; i < n; i += spin.RecordSize {
//		st, _ := spin.DecodeStat(buf[i:])
//		fmt.Println(st.Name, st.Total())
//	}
//
// The same channel is reachable over TCP through the lockstat daemon; see
// cmd/lockstat.
package spin

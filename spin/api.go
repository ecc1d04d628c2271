// Package spin provides the public API for the spinlock runtime.
//
// See doc.go for detailed documentation and examples.
package spin

import (
	"github.com/kolkov/spinlock/internal/spin/cpu"
	"github.com/kolkov/spinlock/internal/spin/device"
	"github.com/kolkov/spinlock/internal/spin/lock"
)

// Lock is a busy-wait mutual exclusion lock with at-most-one-holder
// semantics across CPUs. See the methods Acquire, TryAcquire, Release and
// Holding.
type Lock = lock.SpinLock

// Stat is one decoded lock-statistics record: the lock's display name and
// one acquisition counter per CPU slot.
type Stat = lock.Stat

// Wire-format constants of the statistics control channel.
const (
	// MaxCPU is the largest supported CPU topology; every statistics
	// record carries a counter slot for each possible CPU.
	MaxCPU = cpu.MaxCPU

	// RecordSize is the serialized size of one statistics record.
	RecordSize = lock.RecordSize

	// CmdStart, CmdStop and CmdClear are the control channel command bytes.
	CmdStart = lock.CmdStart
	CmdStop  = lock.CmdStop
	CmdClear = lock.CmdClear
)

// Init configures the CPU topology (1..MaxCPU) and discards all existing
// goroutine bindings.
//
// Call once at startup before any lock operation. Re-initializing while
// locks are held is undefined.
func Init(ncpu int) {
	cpu.Init(ncpu)
}

// Pin binds the calling goroutine exclusively to CPU id until Unpin.
//
// Goroutines that skip Pin are bound lazily to an idle CPU on their first
// lock operation; Pin exists for callers that need a stable identity, such
// as tests asserting per-CPU counters.
func Pin(id int) {
	cpu.Pin(id)
}

// Unpin releases the calling goroutine's CPU back to the idle pool.
func Unpin() {
	cpu.Unpin()
}

// CurrentCPU returns the number of the CPU bound to the calling goroutine,
// binding one lazily if needed.
func CurrentCPU() int {
	return cpu.Current().ID
}

// New allocates and initializes a named lock.
func New(name string) *Lock {
	return lock.New(name)
}

// SetDebug toggles the ownership debug tracker and returns the previous
// setting. It defaults to on; see the package documentation for what is
// lost by turning it off.
func SetDebug(on bool) bool {
	return lock.SetDebug(on)
}

// StartTracking registers a statistics record for lk. If record allocation
// fails, tracking silently stays off for lk. Tracking the same lock twice
// is a fatal defect.
func StartTracking(lk *Lock) {
	lock.StartTracking(lk)
}

// StopTracking detaches lk from its statistics record. The record stays in
// the registry, inactive, until the next clear sweep.
func StopTracking(lk *Lock) {
	lock.StopTracking(lk)
}

// StartCollection enables global statistics collection.
func StartCollection() {
	_ = lock.ApplyCommand(lock.CmdStart)
}

// StopCollection disables global statistics collection. Records and
// counters are preserved; re-enabling resumes from the prior values.
func StopCollection() {
	_ = lock.ApplyCommand(lock.CmdStop)
}

// ClearStats frees detached records and zeroes the counters of active ones.
func ClearStats() {
	_ = lock.ApplyCommand(lock.CmdClear)
}

// CollectionEnabled reports the global collection gate.
func CollectionEnabled() bool {
	return lock.CollectionEnabled()
}

// InitLockstat attaches the statistics subsystem to its device channel.
// Must run once during startup before ReadLockstat or WriteLockstat.
func InitLockstat() error {
	return lock.InitLockstatDevice()
}

// ReadLockstat reads serialized statistics records through the device
// channel. off must be a multiple of RecordSize and n at least RecordSize;
// the return value is the number of bytes produced.
func ReadLockstat(dst []byte, off, n uint32) (int, error) {
	return device.Read(device.Lockstat, dst, off, n)
}

// WriteLockstat sends one command byte through the device channel.
func WriteLockstat(cmd byte) error {
	_, err := device.Write(device.Lockstat, []byte{cmd}, 0, 1)
	return err
}

// DecodeStat parses one RecordSize-byte record image as produced by
// ReadLockstat.
func DecodeStat(b []byte) (Stat, error) {
	return lock.DecodeStat(b)
}

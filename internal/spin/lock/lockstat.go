// Lockstat: per-lock, per-CPU acquisition statistics.
//
// A lock opts in through StartTracking, which registers a Record in a
// global registry. Ownership of the record then splits: the lock keeps a
// reference for the per-acquisition counter update, and the registry keeps
// one that outlives the lock's detachment so historical counts stay
// queryable. A record dies in two phases: StopTracking marks it inactive
// and a later ClearAll sweep frees it. The split removes any use-after-free
// window when a lock is torn down before the registry is read.
//
// The registry itself is guarded by a dedicated SpinLock that is never
// statistics-tracked, so updating the registry can never recurse into it.

package lock

import (
	"encoding/binary"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/kolkov/spinlock/internal/spin/cpu"
	"github.com/kolkov/spinlock/internal/spin/fatal"
)

// Record wire layout: name, then one 8-byte little-endian counter per
// possible CPU. The size is fixed so that read windows can address records
// by offset arithmetic alone.
const (
	// NameSize bounds the stored copy of a lock's display name.
	NameSize = 16

	// RecordSize is the serialized size of one Record.
	RecordSize = NameSize + 8*cpu.MaxCPU
)

// Control channel command bytes. ASCII digits, so the channel can be
// driven from a shell with echo.
const (
	// CmdStart enables collection globally.
	CmdStart byte = '0'
	// CmdStop disables collection; records and counters are preserved.
	CmdStop byte = '1'
	// CmdClear sweeps detached records and zeroes counters of active ones.
	CmdClear byte = '2'
)

var (
	// ErrUnalignedOffset is returned when a read window does not start on
	// a record boundary.
	ErrUnalignedOffset = errors.New("lockstat: offset not a multiple of record size")

	// ErrShortRead is returned when a read window is smaller than one record.
	ErrShortRead = errors.New("lockstat: window smaller than one record")

	// ErrBadCommand is returned for an unrecognized control byte.
	ErrBadCommand = errors.New("lockstat: unknown command")
)

// Record accumulates acquisition counts for one tracked lock.
type Record struct {
	// name is a bounded copy of the lock's display name, stored
	// independently so it survives the lock's teardown.
	name [NameSize]byte

	// active is true while the owning lock still references this record.
	// It flips false on StopTracking and the record persists until the
	// next ClearAll sweep.
	active atomic.Bool

	// counts holds one acquisition counter per CPU, accessed atomically:
	// the owning CPU increments its own slot while readers and the clear
	// sweep touch all of them.
	counts [cpu.MaxCPU]uint64
}

var (
	// collecting is the global enable gate, checked first on the
	// acquisition hot path so a disabled lockstat costs one atomic load.
	collecting atomic.Bool

	// statLock guards records. A plain SpinLock: it never gets a stats
	// record of its own.
	statLock SpinLock

	// records is the registry. Unordered; iteration order is whatever
	// insertion produced.
	records []*Record

	// newRecord allocates a Record. It is a hook so tests can exercise
	// the allocation-failure path, where tracking silently stays off.
	newRecord = func() *Record { return new(Record) }
)

func init() {
	statLock.Init("lockstat")
}

// StartTracking creates and registers a statistics record for lk.
//
// Allocation failure is recoverable: the lock simply stays untracked.
// Initializing tracking twice on the same lock is a caller defect and is
// fatal.
func StartTracking(lk *SpinLock) {
	if lk.stat.Load() != nil {
		fatal.Fatalf("lockstat: %q already tracked", lk.name)
	}

	rec := newRecord()
	if rec == nil {
		return
	}
	copy(rec.name[:], lk.name)
	rec.active.Store(true)

	statLock.Acquire()
	records = append(records, rec)
	statLock.Release()

	lk.stat.Store(rec)
}

// StopTracking detaches lk from its record, if any. The registry reference
// remains until the next ClearAll sweep; counters stop moving for this lock
// immediately.
func StopTracking(lk *SpinLock) {
	if rec := lk.stat.Swap(nil); rec != nil {
		rec.active.Store(false)
	}
}

// ClearAll removes and frees every detached record and zeroes the counters
// of records still attached, so long-lived locks keep accumulating into a
// fresh window.
func ClearAll() {
	statLock.Acquire()
	kept := records[:0]
	for _, rec := range records {
		if !rec.active.Load() {
			continue
		}
		for i := range rec.counts {
			atomic.StoreUint64(&rec.counts[i], 0)
		}
		kept = append(kept, rec)
	}
	// Drop trailing slots so swept records become collectable.
	for i := len(kept); i < len(records); i++ {
		records[i] = nil
	}
	records = kept
	statLock.Release()
}

// CollectionEnabled reports the global collection gate.
func CollectionEnabled() bool {
	return collecting.Load()
}

// ApplyCommand interprets one control byte: CmdStart, CmdStop or CmdClear.
// Anything else returns ErrBadCommand without touching any state.
func ApplyCommand(b byte) error {
	switch b {
	case CmdStart:
		collecting.Store(true)
	case CmdStop:
		collecting.Store(false)
	case CmdClear:
		ClearAll()
	default:
		return ErrBadCommand
	}
	return nil
}

// ReadRecords serializes a contiguous run of records into dst.
//
// off must be a multiple of RecordSize and n must cover at least one
// record; violating either returns an error and produces no data. The
// window is filled with whole records only and the number of bytes written
// is returned, zero when off is at or past the end of the registry.
//
// The registry lock is held across the whole serialization, so a read
// concurrent with ClearAll sees either the pre- or post-sweep registry,
// never a partial one.
func ReadRecords(dst []byte, off, n uint32) (int, error) {
	if off%RecordSize != 0 {
		return 0, ErrUnalignedOffset
	}
	if uint32(len(dst)) < n {
		n = uint32(len(dst))
	}
	if n < RecordSize {
		return 0, ErrShortRead
	}

	cur := uint32(0)
	statLock.Acquire()
	for _, rec := range records {
		if n < RecordSize {
			break
		}
		if cur >= off {
			rec.encode(dst[cur-off:])
			n -= RecordSize
		}
		cur += RecordSize
	}
	statLock.Release()

	if cur >= off {
		return int(cur - off), nil
	}
	return 0, nil
}

// encode writes the fixed wire image of r into dst, which must hold at
// least RecordSize bytes.
func (r *Record) encode(dst []byte) {
	copy(dst[:NameSize], r.name[:])
	for i := 0; i < cpu.MaxCPU; i++ {
		binary.LittleEndian.PutUint64(dst[NameSize+8*i:], atomic.LoadUint64(&r.counts[i]))
	}
}

// Stat is the decoded form of one serialized record.
type Stat struct {
	// Name is the lock's display name, NUL padding stripped.
	Name string

	// Counts holds the per-CPU acquisition counters.
	Counts [cpu.MaxCPU]uint64
}

// Total sums the per-CPU counters.
func (s Stat) Total() uint64 {
	var t uint64
	for _, c := range s.Counts {
		t += c
	}
	return t
}

// DecodeStat parses one RecordSize-byte wire image, the inverse of the
// serialization ReadRecords produces.
func DecodeStat(b []byte) (Stat, error) {
	if len(b) < RecordSize {
		return Stat{}, ErrShortRead
	}
	var s Stat
	s.Name = strings.TrimRight(string(b[:NameSize]), "\x00")
	for i := 0; i < cpu.MaxCPU; i++ {
		s.Counts[i] = binary.LittleEndian.Uint64(b[NameSize+8*i:])
	}
	return s, nil
}

// ResetLockstat returns the subsystem to its boot state: collection off,
// registry empty, default allocator. Test hook; production code never
// unwinds the registry.
func ResetLockstat() {
	collecting.Store(false)
	statLock.Acquire()
	records = nil
	statLock.Release()
	newRecord = func() *Record { return new(Record) }
}

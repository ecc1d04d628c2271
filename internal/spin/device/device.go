// Package device implements the virtual device switch the instrumentation
// subsystems attach to.
//
// A device is a numbered logical channel with a read and a write handler,
// the Go rendition of a kernel devsw table. Subsystems register their
// handlers once at startup; transports (see cmd/lockstat) forward client
// bytes to Write and serve Read windows back.
//
// The table is fixed-size and append-never: slots are claimed by device
// number, and a slot can be registered exactly once per process (tests may
// re-register through Reset).
package device

import (
	"errors"
	"sync"
)

// Device numbers. Zero is reserved so that an uninitialized device number
// is never a valid channel.
const (
	// Lockstat is the lock-statistics control channel.
	Lockstat = 1

	// tableSize bounds the device table, devsw-style.
	tableSize = 8
)

var (
	// ErrNoDevice is returned for reads/writes on an unregistered slot.
	ErrNoDevice = errors.New("device: not registered")

	// ErrBusyDevice is returned when a slot is registered twice.
	ErrBusyDevice = errors.New("device: already registered")
)

// ReadFunc serves a read window. It fills dst with up to n bytes starting at
// logical offset off and returns the number of bytes produced.
type ReadFunc func(dst []byte, off, n uint32) (int, error)

// WriteFunc accepts a write of n bytes from src at logical offset off and
// returns the number of bytes consumed.
type WriteFunc func(src []byte, off, n uint32) (int, error)

// RW bundles the two handlers of one device slot.
type RW struct {
	Read  ReadFunc
	Write WriteFunc
}

var (
	mu    sync.RWMutex
	table [tableSize]*RW
)

// Register claims slot dev with the given handlers.
//
// Registration normally happens once during startup, before any client
// issues reads or writes. Claiming an occupied slot returns ErrBusyDevice.
func Register(dev int, rw RW) error {
	if dev <= 0 || dev >= tableSize {
		return ErrNoDevice
	}
	mu.Lock()
	defer mu.Unlock()
	if table[dev] != nil {
		return ErrBusyDevice
	}
	table[dev] = &rw
	return nil
}

// Read serves a read window from slot dev.
func Read(dev int, dst []byte, off, n uint32) (int, error) {
	rw := lookup(dev)
	if rw == nil || rw.Read == nil {
		return 0, ErrNoDevice
	}
	return rw.Read(dst, off, n)
}

// Write forwards a write to slot dev.
func Write(dev int, src []byte, off, n uint32) (int, error) {
	rw := lookup(dev)
	if rw == nil || rw.Write == nil {
		return 0, ErrNoDevice
	}
	return rw.Write(src, off, n)
}

func lookup(dev int) *RW {
	if dev <= 0 || dev >= tableSize {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return table[dev]
}

// Reset clears the table. Test hook only; production code registers each
// slot exactly once.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	for i := range table {
		table[i] = nil
	}
}

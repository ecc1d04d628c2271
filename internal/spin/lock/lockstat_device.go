// Lockstat device attachment.
//
// The statistics subsystem is driven through a virtual device channel:
// a 1-byte write selects start/stop/clear, a read returns the concatenated
// record images. InitLockstatDevice wires the handlers into the device
// table during system startup; it must run before any client issues reads
// or writes on the channel.

package lock

import "github.com/kolkov/spinlock/internal/spin/device"

// InitLockstatDevice registers the lockstat read/write handlers on the
// device.Lockstat channel.
func InitLockstatDevice() error {
	return device.Register(device.Lockstat, device.RW{
		Read:  lockstatRead,
		Write: lockstatWrite,
	})
}

// lockstatRead serves a record window; the (off, n) contract is
// ReadRecords' contract.
func lockstatRead(dst []byte, off, n uint32) (int, error) {
	return ReadRecords(dst, off, n)
}

// lockstatWrite interprets the first byte of the write as a command. A
// recognized command consumes the whole write and echoes the byte count; an
// unrecognized one is rejected without touching any state.
func lockstatWrite(src []byte, off, n uint32) (int, error) {
	_ = off // command writes are position-independent
	if len(src) == 0 || n == 0 {
		return 0, ErrBadCommand
	}
	if err := ApplyCommand(src[0]); err != nil {
		return 0, err
	}
	return int(n), nil
}

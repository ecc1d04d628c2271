// Package callstack implements bounded-depth caller-PC capture for the
// ownership debug tracker.
//
// Design:
//   - Fixed-size traces (8 frames, 64 bytes per trace)
//   - Zero padding for stacks shallower than the bound
//   - No storage: the single live trace per lock lives inside the lock
//     itself and is cleared on release, so there is nothing to deduplicate
//
// A Trace is a plain value. Capturing is ~500ns (runtime.Callers dominated);
// formatting resolves symbols and is reserved for the diagnostic path.
package callstack

import (
	"fmt"
	"runtime"
	"strings"
)

// MaxFrames is the maximum number of stack frames captured per trace.
// Eight frames identify the acquisition site in practice while keeping the
// per-lock footprint at one cache line.
const MaxFrames = 8

// Trace is a captured return-address chain, zero-padded past the last frame.
type Trace struct {
	PC [MaxFrames]uintptr
}

// Capture records the caller chain of the invoking goroutine.
//
// skip counts frames to drop before recording, not counting Capture itself:
// Capture(0) starts at Capture's caller, Capture(1) at that caller's caller.
// Unused tail entries are left zero.
func Capture(skip int) Trace {
	var t Trace
	// +2 skips runtime.Callers and Capture so that skip is relative to the
	// caller, matching runtime.Caller's convention.
	runtime.Callers(skip+2, t.PC[:])
	return t
}

// Empty reports whether no frame was captured.
func (t Trace) Empty() bool {
	return t.PC[0] == 0
}

// Clear zeroes the trace. Called on lock release so a stale owner chain is
// never reported for a free lock.
func (t *Trace) Clear() {
	*t = Trace{}
}

// Format renders the trace one frame per line for fatal diagnostics,
// filtering runtime-internal frames:
//
//	github.com/kolkov/spinlock/internal/spin/lock.(*SpinLock).Acquire()
//	    /path/to/spinlock.go:118
//
// Returns "  <unknown>\n" if nothing was captured.
func (t Trace) Format() string {
	if t.Empty() {
		return "  <unknown>\n"
	}

	n := 0
	for n < MaxFrames && t.PC[n] != 0 {
		n++
	}
	frames := runtime.CallersFrames(t.PC[:n])

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&buf, "  %s()\n", frame.Function)
		fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

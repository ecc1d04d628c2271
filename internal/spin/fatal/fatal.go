// Package fatal implements unrecoverable-defect reporting for the spinlock
// runtime.
//
// The conditions reported here (re-acquiring a held lock, releasing a lock
// held by another CPU, interrupt nesting underflow) leave the runtime in a
// state no caller can continue from; on real hardware they would end in a
// machine halt. A library cannot halt the machine, so the default handler
// panics with a *Error carrying the formatted diagnostic. The handler never
// returns normally.
//
// Tests replace the handler with SetHandler to observe the defect instead of
// unwinding through a panic.
package fatal

import (
	"fmt"
	"sync/atomic"
)

// Error is the value the default handler panics with.
//
// Callers that intercept the panic can assert on *Error to distinguish a
// reported lock defect from an unrelated runtime panic.
type Error struct {
	// Msg is the formatted diagnostic, including the failing operation and
	// the lock or CPU involved.
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "spinlock: fatal: " + e.Msg
}

// Handler receives the formatted diagnostic. It must not return normally;
// returning leaves the runtime in a state the defect already corrupted.
type Handler func(msg string)

// handler holds the current Handler. Stored through an atomic so Fatalf can
// be called from any CPU without synchronization against SetHandler.
var handler atomic.Value // Handler

func init() {
	handler.Store(Handler(defaultHandler))
}

// defaultHandler panics with a *Error. Panic is the closest never-returns
// primitive available to a memory-safe runtime.
func defaultHandler(msg string) {
	panic(&Error{Msg: msg})
}

// Fatalf formats a diagnostic and hands it to the installed handler.
//
// The call never returns under the default handler. If a test-installed
// handler returns anyway, Fatalf panics to preserve the contract.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	h := handler.Load().(Handler)
	h(msg)
	// A handler that returns breaks the never-returns contract; do not let
	// the caller continue past the defect.
	panic(&Error{Msg: msg})
}

// SetHandler installs h and returns the previous handler so tests can
// restore it. Passing nil reinstalls the default panic handler.
func SetHandler(h Handler) Handler {
	prev := handler.Load().(Handler)
	if h == nil {
		h = defaultHandler
	}
	handler.Store(h)
	return prev
}

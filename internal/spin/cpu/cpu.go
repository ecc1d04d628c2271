// Package cpu models the per-processor state the spinlock core runs on:
// a fixed topology of CPU contexts, a goroutine-to-CPU binding layer that
// stands in for the kernel's "current CPU" lookup, and the interrupt
// nesting controller.
//
// Each CPU carries a simulated interrupt-enable flag and the matched
// push/pop nesting counter that the lock core drives around every critical
// section. Per-CPU fields are mutated only by the goroutine bound to that
// CPU; the binding layer is the only synchronized part of the package.
package cpu

import "github.com/kolkov/spinlock/internal/spin/fatal"

// MaxCPU is the largest supported topology. Statistics records serialize a
// counter slot for every possible CPU, so the bound is part of the wire
// format and must not vary at runtime.
const MaxCPU = 32

// CPU is the per-processor context.
//
// Invariant: noff equals the number of outstanding PushOff calls not yet
// matched by PopOff on this CPU. All fields except ID are owned by the
// goroutine currently bound to the CPU and require no synchronization.
type CPU struct {
	// ID is the processor number, fixed at Init.
	ID int

	// noff is the interrupt-mask nesting depth.
	noff int32

	// intena records whether interrupts were enabled before the first
	// outstanding PushOff, so PopOff can restore the original state.
	intena bool

	// intrOn is the simulated hardware interrupt-enable flag. It stands in
	// for the sti/cli instruction pair and the flag-register query.
	intrOn bool
}

// IntrOn enables interrupt delivery on this CPU (the sti analog).
func (c *CPU) IntrOn() { c.intrOn = true }

// IntrOff disables interrupt delivery on this CPU (the cli analog).
func (c *CPU) IntrOff() { c.intrOn = false }

// InterruptsEnabled reports the simulated interrupt-enable flag.
func (c *CPU) InterruptsEnabled() bool { return c.intrOn }

// Depth returns the current interrupt-mask nesting depth.
func (c *CPU) Depth() int { return int(c.noff) }

// PushOff disables interrupts and increments the nesting depth.
//
// The pre-mask enable state is captured only at the outermost level, so a
// later matched PopOff restores exactly what the first PushOff saw.
func (c *CPU) PushOff() {
	if c.noff == 0 {
		c.intena = c.intrOn
	}
	c.IntrOff()
	c.noff++
}

// PopOff decrements the nesting depth, re-enabling interrupts only when the
// outermost mask is released and only if they were enabled before it.
//
// More pops than pushes is a caller defect and is fatal. Popping while the
// interrupt flag is set means someone re-enabled interrupts inside a masked
// region; that is equally fatal because the mask no longer means anything.
func (c *CPU) PopOff() {
	if c.intrOn {
		fatal.Fatalf("popoff: cpu%d interruptible inside masked region", c.ID)
	}
	if c.noff < 1 {
		fatal.Fatalf("popoff: cpu%d nesting underflow", c.ID)
	}
	c.noff--
	if c.noff == 0 && c.intena {
		c.IntrOn()
	}
}

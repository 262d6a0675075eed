package sched

import "kestrel/internal/cpu"

// TPIDR_EL0 packs a process's kernel-visible identity: bit 63 is the
// "kernel mode" flag, bits 0-7 the raw slot id, bits 8-23 the 16-bit
// generation, bits 24-31 the CPU affinity (core index) it was last
// scheduled on. Userland reads its own identity out of this register
// cheaply; IsKernelMode reads the kernel-mode bit, and no kernel path
// checks it.
const (
	tpidrKernelBit = uint64(1) << 63
	tpidrIDMask    = 0xFF
	tpidrGenShift  = 8
	tpidrGenMask   = 0xFFFF
	tpidrAffShift  = 24
	tpidrAffMask   = 0xFF
)

func packTPIDR(id uint8, gen uint16, affinity uint8) uint64 {
	return uint64(id) | uint64(gen&tpidrGenMask)<<tpidrGenShift | uint64(affinity&tpidrAffMask)<<tpidrAffShift
}

// RawID extracts the raw slot id packed into a TPIDR_EL0 value.
func RawID(tpidr uint64) uint8 {
	return uint8(tpidr & tpidrIDMask)
}

// IsKernelMode reports whether a TPIDR_EL0 value has the kernel-mode bit
// set — true whenever the core is not currently running user state.
func IsKernelMode(tpidr uint64) bool {
	return tpidr&tpidrKernelBit != 0
}

// KernelGuard marks TPIDR_EL0 as kernel mode for the duration of a trap
// handler, restoring the previous (user) value on Release — a Go value
// standing in for the source's Drop-based guard.
type KernelGuard struct {
	prev uint64
}

// EnterKernel clears TPIDR_EL0 to just the kernel-mode bit and returns a
// guard that restores the prior value. Call at the top of every exception
// handler that might run with a user TPIDR_EL0 still loaded — the id/gen/
// affinity fields are user-process identity, not meaningful while the
// kernel is running, so entry overwrites them rather than preserving them.
func EnterKernel() KernelGuard {
	prev := cpu.TpidrEL0()
	cpu.SetTpidrEL0(tpidrKernelBit)
	return KernelGuard{prev: prev}
}

// Release restores the TPIDR_EL0 value captured by EnterKernel.
func (g KernelGuard) Release() {
	cpu.SetTpidrEL0(g.prev)
}

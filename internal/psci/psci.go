// Package psci carries only the shape PSCI-adjacent code needs, not the
// state machine: the entry-point/context-block layout EL3 firmware (or an
// EL2 boot stub standing in for it) hands to EL1, and two SMC-style calls,
// Done (made by the scheduler) and CPUOn (not called anywhere in this
// kernel). The CPU_ON/CPU_OFF/
// SUSPEND power-state machine itself is board/SoC material and out of
// scope here (see internal/board for where a real implementation would
// plug in).
package psci

// ParamHeader is the type/version/attribute header every PSCI parameter
// structure starts with.
type ParamHeader struct {
	Type    uint32
	Version uint32
	Attr    uint32
	Flags   uint32
}

// Security-state bit in ParamHeader.Attr.
const (
	epSecurityMask = 1 << 0
	EPSecure       = 0
	EPNonSecure    = 1 << 0
)

// EntryPointInfo is the superset of information needed when switching
// exception levels by ERET: which security state, the AArch64/AArch32
// execution mode, the target PC and SPSR, and up to four AAPCS64
// arguments. context.NewEntryContext builds the narrower GpRegs this
// kernel actually uses; EntryPointInfo exists so a PSCI resume path has
// somewhere to read the same information from without a shape change.
type EntryPointInfo struct {
	H    ParamHeader
	PC   uintptr
	Spsr uint64
	Args [4]uint64
}

// IsSecure reports the security state encoded in the header's attr field.
func (ep *EntryPointInfo) IsSecure() bool {
	return ep.H.Attr&epSecurityMask == EPSecure
}

// modeRW shift/mask within SPSR, ARMv8's aarch32/aarch64 execution-state bit.
const (
	modeRWShift = 4
	modeRWMask  = 1
	modeRW64    = 0
)

// IsModeRW64 reports whether the entry point targets AArch64 execution.
func (ep *EntryPointInfo) IsModeRW64() bool {
	return (ep.Spsr>>modeRWShift)&modeRWMask == modeRW64
}

// Done switches back to normal-world firmware via the SMC "done" sequence
// — the scheduler calls this once there is neither an Active process nor
// any Ready work left on the calling core. The real SMC trampoline lives
// in psci_arm64.s; here it is a documented stub fixed to the shape the
// original firmware handoff expects, not a working power-state
// transition (out of scope per this kernel's board-independence goal).
//
//go:noescape
func Done()

// CPUOn issues PSCI CPU_ON for targetMPIDR, pointing the woken core's
// reset vector at entry. Returns false on any failure the stub reports;
// the real SCPI/mailbox wakeup path is board-specific and not implemented
// here.
//
//go:noescape
func cpuOnSMC(targetMPIDR uint64, entry uintptr) uint64

func CPUOn(targetMPIDR uint64, entry uintptr) bool {
	const psciESuccess = 0
	return cpuOnSMC(targetMPIDR, entry) == psciESuccess
}

// CPUOff is permanently disabled: the original kernel carries a comment
// disabling PSCI CPU_OFF because of a bug in the surrounding power-state
// code ("disable CPU off because of bug"), never re-enabled. Kestrel
// keeps that decision rather than reimplementing a power-state machine
// this spec excludes.
func CPUOff() bool {
	return false
}

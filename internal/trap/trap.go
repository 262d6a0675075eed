// Package trap is the Go side of the exception vector table: one named
// function per {current/lower EL, SP0/SPx, sync/irq/fiq/serror} slot that
// vectors_arm64.s calls with a pointer to the GpRegs it just saved. These
// functions classify, log, and dispatch; they never touch a register the
// assembly trampoline didn't already save, and they return normally —
// vectors_arm64.s restores state and ERETs after each one.
package trap

import (
	"kestrel/internal/context"
	"kestrel/internal/cpu"
	"kestrel/internal/gic"
	"kestrel/internal/klog"
	"kestrel/internal/memalloc"
	"kestrel/internal/pager"
	"kestrel/internal/sched"
	"kestrel/internal/svc"
)

// ESR_EL1 exception classes this kernel distinguishes. Every other class
// falls into the "unknown" branch of LowerELSync64EL1 and is logged, not
// handled.
const (
	ecWfiOrWfe    = 0b000001
	ecDataAbortEL = 0b100100 // lower EL
	ecDataAbortEx = 0b100101 // same EL
	ecSvc64       = 0b010101
)

func ecOf(esr uint64) uint64 {
	return (esr >> 26) & 0x3F
}

// callExit is the landing pad a faulting EL0 process's ELR gets
// redirected to: pageFaultEL0 can't unwind the process itself (it's
// running on that process's own saved context, mid-trap), so it arranges
// for the process to re-enter the kernel, cleanly, the moment it's
// resumed, the same way the original kernel redirects ELR to its own
// call_exit before returning from a fatal page fault.
//
//go:noinline
func callExit() {
	svc.ExitFromKernel()
}

// callExitAddr returns callExit's entry address, in callexit_arm64.s —
// Go has no `fn as u64` cast, so this is the asm equivalent of one.
//
//go:noescape
func callExitAddr() uintptr

// VectorTableEL1Addr and VectorTableEL2Addr return the two vector
// tables' base addresses, for internal/boot to install into VBAR_EL1
// and VBAR_EL2. Both tables live in vectors_arm64.s, 2KB-aligned as the
// architecture requires.
//
//go:noescape
func VectorTableEL1Addr() uintptr

//go:noescape
func VectorTableEL2Addr() uintptr

// LowerELSync64EL1 handles every synchronous exception taken from EL0
// into EL1: the overwhelmingly common case in this kernel, since EL0 is
// where every process's ordinary instruction stream, page faults and
// syscalls happen.
func LowerELSync64EL1(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	guard := sched.EnterKernel()
	defer guard.Release()

	DetectStackOverflow()

	esr := cpu.EsrEL1()
	switch ecOf(esr) {
	case ecWfiOrWfe:
		klog.Msg("trap", "wfi/wfe")

	case ecDataAbortEL:
		pageFaultEL0(ctx)

	case ecSvc64:
		ctx.X[0] = uint64(svc.Handle64(ctx))

	default:
		logUnknown(ctx, esr)
	}
}

// CurrELSp0Sync handles a synchronous exception taken from EL1 while
// still running on SP_EL0 — only possible vanishingly early in boot,
// before the kernel switches to its own SP_EL1 stack. A data abort here
// means a kernel-heap address was touched before it was mapped;
// everything else is a bug this kernel cannot recover from.
func CurrELSp0Sync(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	esr := cpu.EsrEL1()
	if ecOf(esr) == ecDataAbortEx {
		pageFaultEL1()
		return
	}
	logUnknown(ctx, esr)
	panic("trap: unrecoverable CurrELSp0 exception")
}

func logUnknown(ctx *context.GpRegs, esr uint64) {
	klog.Hex64("trap", "unknown esr=", esr)
	klog.Hex64("trap", "elr=", ctx.Elr)
	klog.Hex64("trap", "spsr=", ctx.Spsr)
}

// pageFaultEL0 services a data abort taken from EL0: the only recovery
// target is the faulting process's own future, so InvalidAccess and
// StackOverflow both end in that process being unwound, never a panic.
func pageFaultEL0(ctx *context.GpRegs) {
	id, ok := sched.GetRawID()
	var idPtr *uint8
	if ok {
		idPtr = &id
	}

	far := uintptr(cpu.FarEL1())
	switch pager.Default().Fault(far, idPtr) {
	case pager.OK:
		return
	case pager.StackOverflow, pager.InvalidAccess:
		ctx.Elr = uint64(callExitAddr())
	}
}

// pageFaultEL1 services a data abort taken while the kernel itself was
// running: there is no process to unwind, so every outcome other than a
// freshly installed mapping is a bug in the kernel's own addressing.
func pageFaultEL1() {
	if pager.Default().Fault(uintptr(cpu.FarEL1()), nil) != pager.OK {
		panic("trap: kernel-mode fault outside the mapped heap")
	}
}

// DetectStackOverflow checks the active process's SP against its own
// canary pages before doing anything else in a trap. A process that ran
// its stack pointer onto (or past) its canary is killed immediately
// rather than left to fault again deeper in the handler.
func DetectStackOverflow() {
	id, ok := sched.GetRawID()
	if !ok {
		return
	}
	sp := uintptr(cpu.SpEL1())
	if memalloc.IsUserCanary(id, sp) || memalloc.IsUserCanary(id, sp-memalloc.StackSize) {
		klog.Msg("trap", "stack overflow")
		sched.Exit()
	}
}

// LowerELIRQ64EL1 acknowledges and dispatches an IRQ. Every vector slot
// that can observe an interrupt (current-EL and lower-EL alike — this
// kernel draws no behavioral distinction between them) routes here; sp is
// unused and ctx only reaches reportAndHalt, but both are kept so every
// vector slot can share one calling convention in vectors_arm64.s.
func LowerELIRQ64EL1(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	DetectStackOverflow()
	c := gic.Default()
	if c == nil {
		klog.Msg("trap", "irq with no controller registered")
		return
	}
	c.Dispatch(c.Acknowledge())
}

// LowerELFIQ64EL1 mirrors LowerELIRQ64EL1; this kernel never configures
// an FIQ source, so reaching it at all means a board's firmware routed
// something here unexpectedly.
func LowerELFIQ64EL1(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	DetectStackOverflow()
	klog.Msg("trap", "fiq fired")
}

// LowerELSError64EL1: an SError is an uncorrectable bus/memory error.
// There is no handler that makes sense other than unwinding whatever was
// running when it landed.
func LowerELSError64EL1(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	klog.Msg("trap", "serror")
	sched.Exit()
}

// unsupportedAArch32 is wired to all four lower-EL AArch32 slots. This
// kernel never loads a 32-bit process (EL0's SPSR always selects AArch64
// execution), so reaching one of these means a corrupted SPSR or a
// process image the loader should never have accepted.
func unsupportedAArch32(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	logUnknown(ctx, cpu.EsrEL1())
	panic("trap: unexpected AArch32 exception")
}

// unexpectedEL2 backs every slot of the EL2 vector table: boot never
// expects a real exception before the EL2→EL1 drop completes, and the
// PSCI resume paths that might re-enter at EL2 afterward are a documented
// stub (internal/psci) with nothing live enough to fault.
func unexpectedEL2(ctx *context.GpRegs, sp uint64) {
	defer reportAndHalt(ctx)
	logUnknown(ctx, cpu.EsrEL1())
	panic("trap: exception at EL2")
}

// CurrELSpxSync is wired straight to CurrELSp0Sync in vectors_arm64.s:
// once the kernel's own SP_EL1 stack is live, a same-EL exception has
// identical fault semantics regardless of which SP was active when it
// was taken.

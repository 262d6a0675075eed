// Package svc is the syscall dispatcher: one function, Handle64, that
// reads a code and up to two arguments out of a trapped SVC's saved
// register file and calls into whichever collaborator package owns that
// operation. It never masks interrupts or marks TPIDR_EL0 kernel-mode
// itself — trap already did both before calling in, and Handle64 trusts
// that.
package svc

import (
	"kestrel/internal/context"
	"kestrel/internal/klog"
	"kestrel/internal/memalloc"
	"kestrel/internal/pager"
	"kestrel/internal/sched"
)

// Syscall numbers, matching the ABI the userland trampolines in
// internal/abi issue SVC #0 against.
const (
	Spawn        = 1
	Exit         = 2
	SchedYield   = 3
	GetPid       = 4
	Send         = 5
	Recv         = 6
	SetAllocator = 7
	Unmap        = 8
)

// Handle64 dispatches a trapped SVC to its collaborator and returns the
// value the caller writes into ctx.X[0]. code, arg1 and arg2 are
// ctx.X[0], ctx.X[1] and ctx.X[2] as trap last saw them.
func Handle64(ctx *context.GpRegs) int64 {
	code := ctx.X[0]
	arg1 := ctx.X[1]
	arg2 := ctx.X[2]

	switch code {
	case Spawn: // app id in arg1, returns new pid or -1
		pid, ok := sched.Spawn(uint32(arg1))
		if !ok {
			return -1
		}
		return int64(pid)

	case Exit: // never returns
		sched.Exit()
		return 0

	case SchedYield:
		sched.Schedule()
		return 0

	case GetPid:
		pid, ok := sched.GetPid()
		if !ok {
			return -1
		}
		return int64(pid)

	case Send: // arg1 = *Locator (the destination), arg2 = value
		pid, ok := sched.GetPid()
		if !ok {
			return 0
		}
		dst := readLocator(uintptr(arg1))
		from := sched.Locator{Kind: sched.LocatorProcess, Value: uint64(pid)}
		if sched.Send(dst, arg2, from) {
			return 1
		}
		return 0

	case Recv: // arg1 = *Locator (out parameter), returns the received value
		id, ok := sched.GetRawID()
		if !ok {
			return 0
		}
		val, from := sched.Recv(id)
		writeLocator(uintptr(arg1), from)
		return int64(val)

	case SetAllocator: // arg1 = *memalloc.Descriptor (out parameter)
		id, ok := sched.GetRawID()
		if !ok {
			return 0
		}
		writeDescriptor(uintptr(arg1), memalloc.DescribeUser(id))
		return 0

	case Unmap: // arg1 = start VA, arg2 = end VA, in the caller's own window
		id, ok := sched.GetRawID()
		if !ok {
			return 0
		}
		pager.Default().UnmapRange(&id, uintptr(arg1), uintptr(arg2))
		return 0

	default:
		klog.Hex64("svc", "denied code=", code)
		return 0
	}
}

// ExitFromKernel is Exit's twin for the callExit trampoline trap installs
// a faulting EL0 process's ELR at (see internal/trap): a kernel-detected
// fault (invalid access, stack overflow) still has to unwind through the
// normal process-exit path rather than leaving the process resident.
func ExitFromKernel() {
	sched.Exit()
}

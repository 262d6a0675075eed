// Package lisp is the kernel's single userland program. It is
// deliberately opaque: no parser, no evaluator, no builtins. What it
// demonstrates is the userland/kernel contract every real interpreter
// process would ride on top of — reading its own identity out of the
// entry registers, installing its allocator descriptor, exchanging
// messages with another process by pid, and yielding cooperatively —
// all through internal/abi's svc stubs, never by trapping directly.
package lisp

import (
	"kestrel/internal/abi"
	"kestrel/internal/memalloc"
	"kestrel/internal/sched"
)

// EntryAddr returns Entry's address for installing into
// sched.EntryPoint, the same way internal/boot's el1EntryAddr hands
// over the kernel's own EL1 landing pad — a Go function's address is
// only reachable from assembly, via its SB symbol.
//
//go:noescape
func EntryAddr() uintptr

// Entry is the process entry point every spawned process starts
// running at EL0. Its signature matches the register convention
// internal/context.NewEntryContext builds: X0 = application id, X1 =
// raw process id, X2 = generation.
func Entry(app, id, gen uint64) {
	var desc memalloc.Descriptor
	abi.SetAllocator(&desc)

	switch uint32(app) {
	case appEcho:
		runEcho()
	default:
		runIdle()
	}

	abi.Exit()
}

// Application ids recognized by the stub program. A real interpreter
// would dispatch on app to select which cookie/script to load; here
// app just selects between the two demonstration behaviors.
const (
	appIdle uint32 = iota
	appEcho
)

// runIdle yields forever, doing nothing: the shape every freshly
// spawned process has before it does any real work.
func runIdle() {
	for {
		abi.SchedYield()
	}
}

// runEcho waits for one message and sends it straight back to its
// sender, then exits — exercising Send/Recv end to end without
// needing a second opaque program.
func runEcho() {
	var from sched.Locator
	val := abi.Recv(&from)

	if from.Kind == sched.LocatorProcess {
		abi.Send(&from, val)
	}
}

// Crash reporting: the one path in this kernel that lets a panic reach
// board.Console instead of being contained. Every vector slot defers
// reportAndHalt(ctx) before doing anything else, so a broken invariant
// anywhere below it — kerr.Exhaustion, a duplicate-init panic, an
// out-of-range Free — surfaces its origin before the core parks forever.
package trap

import (
	"runtime"
	"unsafe"

	"kestrel/internal/context"
	"kestrel/internal/cpu"
	"kestrel/internal/klog"
)

// reportAndHalt recovers a panic unwinding out of a trap handler, prints
// the exception context it was called with plus a best-effort frame walk,
// and parks the core. There is nowhere to unwind to — the process (or the
// kernel itself, for a same-EL fault) that was running when the panic
// happened is gone, and ERETing back to it would resume broken state.
func reportAndHalt(ctx *context.GpRegs) {
	r := recover()
	if r == nil {
		return
	}

	klog.Msg("trap", "panic, halting")
	switch v := r.(type) {
	case string:
		klog.Msg("trap", v)
	case error:
		klog.Msg("trap", v.Error())
	default:
		klog.Msg("trap", "(unprintable panic value)")
	}

	klog.Hex64("trap", "elr=", ctx.Elr)
	klog.Hex64("trap", "fp=", ctx.X[29])
	klog.Hex64("trap", "lr=", ctx.X[30])
	printFrames(uintptr(ctx.Elr), uintptr(ctx.X[29]))

	haltLoop()
}

// haltLoop parks the core forever once a crash has been reported. A
// package variable so tests can swap in something that returns instead
// of spinning.
var haltLoop = func() {
	for {
		cpu.Wfe()
	}
}

// printFrames walks the FP chain starting at fp, resolving each return
// address with runtime.FuncForPC the way the teacher's PrintTraceback
// does — except it trusts Go's own frame-pointer convention directly
// rather than re-deriving it with the teacher's offset workarounds,
// since this walk only ever runs on frames the Go compiler built (the
// panic already unwound past anything the teacher's version had to guard
// against). Walks at most 16 frames and stops at the first address that
// doesn't look like a stack pointer.
func printFrames(pc, fp uintptr) {
	klog.Msg("trap", "--- frames ---")
	printFrame(0, pc)

	for i := 1; i < 16 && fp != 0; i++ {
		if fp < minStackAddr || fp > maxStackAddr {
			break
		}
		savedLR := *(*uintptr)(unsafe.Pointer(fp + 8))
		prevFP := *(*uintptr)(unsafe.Pointer(fp))
		if savedLR == 0 {
			break
		}
		printFrame(i, savedLR)
		if prevFP == 0 || prevFP == fp {
			break
		}
		fp = prevFP
	}
	klog.Msg("trap", "--- end ---")
}

// minStackAddr/maxStackAddr bound the sanity check printFrames applies
// to each candidate frame pointer; values outside this are treated as a
// broken chain rather than followed into arbitrary memory. Kestrel maps
// its whole physical range below 4GiB on every board this runs on.
const (
	minStackAddr = 0x1000
	maxStackAddr = 0xFFFFFFFF
)

func printFrame(n int, pc uintptr) {
	klog.Hex64("trap", "frame pc=", uint64(pc))
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	klog.Msg("trap", fn.Name())
}

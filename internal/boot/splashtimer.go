package boot

import (
	"kestrel/internal/cpu"
	"kestrel/internal/gic"
	"kestrel/internal/splash"
)

// virtualTimerIRQ is the non-secure virtual timer's PPI id, fixed by the
// GICv2 architecture (PPIs 16-31 are banked per core; 27 is the virtual
// timer's slot on every GICv2 implementation this kernel targets).
const virtualTimerIRQ = 27

var statusRenderer *splash.Renderer

// initSplashTimer arms the calling core's virtual timer to fire once a
// second and registers its IRQ with c, flushing r's status banner on
// every fire. Only core 0 calls this — the splash banner is a single
// shared framebuffer, and the virtual timer is itself per-core private
// state, so there is nothing for another core to drive independently.
func initSplashTimer(c gic.Controller, r *splash.Renderer) {
	statusRenderer = r

	c.RegisterHandler(virtualTimerIRQ, splashTimerFired)
	c.EnableIRQ(virtualTimerIRQ)

	armSplashTimer()
}

// armSplashTimer resets the down-counter to fire again in one tick of
// wall-clock time and unmasks the timer. CNTFRQ_EL0 is fixed at reset
// (62.5MHz on QEMU's virt machine); reading it fresh each arm avoids
// assuming a board-specific constant the way the teacher's qemu-only
// timer file does.
func armSplashTimer() {
	cpu.SetCntvTvalEL0(cpu.CntfrqEL0())
	cpu.SetCntvCtlEL0(1) // ENABLE, IMASK clear
}

// splashTimerFired is the virtual timer's registered IRQ handler: redraw
// the status banner, flush it to the framebuffer, and rearm for the
// next second. Runs with IRQs masked at EL1 on the core that owns the
// timer (core 0), the same as every other gic handler.
func splashTimerFired() {
	if statusRenderer != nil {
		statusRenderer.DrawStatus(Build.Board, lastBoardInfo)
		statusRenderer.Flush()
	}
	armSplashTimer()
}

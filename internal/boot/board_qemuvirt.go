//go:build qemuvirt

package boot

import (
	"kestrel/internal/board"
	"kestrel/internal/gic"
	"kestrel/internal/klog"
)

// QEMU's virt machine fixes its PL011 at 0x09000000 and its GICv2
// distributor/CPU-interface pair at 0x08000000/0x08010000 regardless of
// -machine options; both addresses come from QEMU's own hw/arm/virt.c
// memory map, not anything board-probed.
const (
	qemuUARTBase = 0x09000000

	qemuGICDistBase = 0x08000000
	qemuGICCPUBase  = 0x08010000
)

func init() {
	uart := board.PL011UART{Base: qemuUARTBase}
	uart.Init()
	klog.SetWriter(uart)

	// No VideoCore mailbox on QEMU virt; the splash banner's framebuffer
	// comes from the bochs-display PCI device instead.
	framebufferFunc = board.QEMUFramebuffer

	gicDistBase = qemuGICDistBase
	gicCPUBase = qemuGICCPUBase
	gic.InitDefault(&gic.GICv2{})

	boardName = func() string { return "qemuvirt" }
}

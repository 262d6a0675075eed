//go:build pine64

package boot

import (
	"kestrel/internal/board"
	"kestrel/internal/gic"
	"kestrel/internal/klog"
)

// Allwinner A64 (Pine64) addresses. UART0 and the GICv2 pair are fixed
// by the SoC, not board-strapped — mainline Linux's sun50i-a64.dtsi
// agrees with original_source's SUNXI_UART0_BASE constant.
const (
	a64UART0Base = 0x01C28000

	a64GICDistBase = 0x01C81000
	a64GICCPUBase  = 0x01C82000
)

// Pine64 has no VideoCore mailbox; framebufferFunc stays nil, the same
// degrade-gracefully path board.Mailbox already has for Pi boards whose
// firmware declines an allocation.
func init() {
	uart := board.A64UART{Base: a64UART0Base}
	uart.Init()
	klog.SetWriter(uart)

	gicDistBase = a64GICDistBase
	gicCPUBase = a64GICCPUBase
	gic.InitDefault(&gic.GICv2{})

	boardName = func() string { return "pine64" }
}

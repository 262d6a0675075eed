//go:build raspi4

package boot

import (
	"kestrel/internal/board"
	"kestrel/internal/gic"
	"kestrel/internal/klog"
)

// BCM2711 (Raspberry Pi 4B) peripheral addresses, from Linux's
// bcm2711-rpi-4-b.dts. Pi4 is the first Pi in this family with a real
// GICv2 wired to the ARM cores, distinct from the legacy BCM-local
// interrupt controller the 3B still uses.
const (
	bcm2711PeripheralBase = 0xFE000000
	bcm2711UARTBase       = bcm2711PeripheralBase + 0x201000
	bcm2711MailboxBase    = bcm2711PeripheralBase + 0xB880

	bcm2711GICDistBase = 0xFF841000
	bcm2711GICCPUBase  = 0xFF842000
)

func init() {
	uart := board.PL011UART{Base: bcm2711UARTBase}
	uart.Init()
	klog.SetWriter(uart)

	mb := board.Mailbox{Base: bcm2711MailboxBase}
	activeMailbox = &mb
	framebufferFunc = mb.AllocateFramebuffer

	gicDistBase = bcm2711GICDistBase
	gicCPUBase = bcm2711GICCPUBase
	gic.InitDefault(&gic.GICv2{})

	boardName = func() string { return "raspi4" }
}

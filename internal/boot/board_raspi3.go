//go:build raspi3

package boot

import (
	"kestrel/internal/board"
	"kestrel/internal/klog"
)

// BCM2837 (Raspberry Pi 3B/3B+) peripheral addresses, from the
// BCM2837 ARM Peripherals datasheet and Linux's bcm2837-rpi-3-b.dts.
const (
	bcm2837PeripheralBase = 0x3F000000
	bcm2837UARTBase       = bcm2837PeripheralBase + 0x201000
	bcm2837MailboxBase    = bcm2837PeripheralBase + 0xB880
)

// Pi3 has no GICv2: its interrupt controller is the BCM2836/2837 SoC's
// own local interrupt controller, a different register shape this
// kernel's internal/gic doesn't model. Leaving gicDistBase/gicCPUBase at
// zero keeps gic.Default() in its already-established nil-controller
// degrade path instead of misprogramming a GICv2 that isn't there.
func init() {
	uart := board.PL011UART{Base: bcm2837UARTBase}
	uart.Init()
	klog.SetWriter(uart)

	mb := board.Mailbox{Base: bcm2837MailboxBase}
	activeMailbox = &mb
	framebufferFunc = mb.AllocateFramebuffer

	boardName = func() string { return "raspi3" }
}

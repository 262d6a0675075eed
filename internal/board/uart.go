package board

import "unsafe"

// PL011 register offsets from its base, shared by every board this
// kernel targets (QEMU virt, Pi3/Pi4) — only the base address differs.
const (
	pl011DR   = 0x00
	pl011FR   = 0x18
	pl011IBRD = 0x24
	pl011FBRD = 0x28
	pl011LCRH = 0x2C
	pl011CR   = 0x30
	pl011ICR  = 0x44

	pl011FRTXFF = 1 << 5 // transmit FIFO full
)

func mmioWrite32(addr uintptr, v uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = v
}

func mmioRead32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// PL011UART is a board.Console backed by a PL011 at a fixed base address.
// Every board this kernel targets (real Pi hardware and QEMU's virt
// machine) uses this same IP block; only Base differs.
type PL011UART struct {
	Base uintptr
}

// Init brings the UART up: disable, clear interrupts, program the baud
// divisor for a 3MHz UART clock at 115200 baud (IBRD=1, FBRD=40, the
// standard PL011 divisor pair for that combination), 8N1, FIFOs enabled,
// then re-enable TX/RX.
func (u PL011UART) Init() {
	mmioWrite32(u.Base+pl011CR, 0)
	mmioWrite32(u.Base+pl011ICR, 0x7FF)
	mmioWrite32(u.Base+pl011IBRD, 1)
	mmioWrite32(u.Base+pl011FBRD, 40)
	mmioWrite32(u.Base+pl011LCRH, (3<<5)|(1<<4)) // 8 bits, FIFOs enabled
	mmioWrite32(u.Base+pl011CR, (1<<0)|(1<<8)|(1<<9))
}

// WriteByte blocks until the transmit FIFO has room, then writes c.
// Implements board.Console and klog.Writer.
func (u PL011UART) WriteByte(c byte) {
	for mmioRead32(u.Base+pl011FR)&pl011FRTXFF != 0 {
	}
	mmioWrite32(u.Base+pl011DR, uint32(c))
}

package board

// A64UART drives the 16550-compatible UART integrated into Allwinner's
// A64 SoC (Pine64), a different IP block from the PL011 every other
// board this kernel targets uses. Register offsets and the FCR/LSR bit
// positions are the standard 16550 layout; the ones actually touched
// here match original_source's driver/device/allwinner/uart.rs.
type A64UART struct {
	Base uintptr
}

const (
	a64UARTTHR = 0x00 // transmit holding register
	a64UARTRBR = 0x00 // receive holding register (same offset as THR)
	a64UARTIER = 0x04 // interrupt enable register
	a64UARTFCR = 0x08 // FIFO control register
	a64UARTLSR = 0x14 // line status register

	a64LSRDataReady    = 1 << 0
	a64LSRTHREmpty     = 1 << 5
)

// Init matches original_source's A64UART::init: enable the FIFO by
// setting its control bit in THR (the 16550 register this board's
// firmware leaves FCR's enable bit readable from, before the UART is
// otherwise configured by SPL/U-Boot earlier in the boot chain).
func (u A64UART) Init() {
	val := mmioRead32(u.Base + a64UARTFCR)
	mmioWrite32(u.Base+a64UARTTHR, val|1)
}

// WriteByte blocks until the transmit holding register is empty, then
// writes c. Implements board.Console and klog.Writer.
func (u A64UART) WriteByte(c byte) {
	for mmioRead32(u.Base+a64UARTLSR)&a64LSRTHREmpty == 0 {
	}
	mmioWrite32(u.Base+a64UARTTHR, uint32(c))
}

// ReadByte blocks until a byte is available in the receive holding
// register, then returns it. Not yet wired to any caller in this
// kernel — carried for parity with WriteByte since every other UART
// driver here exposes both directions.
func (u A64UART) ReadByte() byte {
	for mmioRead32(u.Base+a64UARTLSR)&a64LSRDataReady == 0 {
	}
	return byte(mmioRead32(u.Base + a64UARTRBR))
}

// Package board holds the per-board bring-up details internal/boot needs
// but the rest of the kernel never should: UART base addresses, the
// VideoCore mailbox property-interface protocol, and (eventually) a
// framebuffer handle for internal/splash. Everything here is shape the
// Pi3/Pi4/Pine64/QEMU-virt targets disagree on; the core kernel only ever
// sees the board.Console interface and the board.Info struct, never a
// register offset.
package board

// Console is the byte-sink klog writes through.
// Exactly klog.Writer's shape, repeated here so board doesn't have to
// import klog just to implement its interface.
type Console interface {
	WriteByte(c byte)
}

// Info is the static identification a board exposes at boot: firmware
// version and revision code, read once and logged, never touched again.
type Info struct {
	FirmwareVersion uint32
	Revision        uint32
	RevisionKnown   bool
}

package board

import "unsafe"

// Framebuffer is the board's linear pixel buffer, in the XRGB8888
// layout QEMU's Bochs display device and the VideoCore's own
// framebuffer both use: four bytes per pixel, B-G-R-X in memory order,
// Pitch bytes per row (may exceed Width*4 if the device pads rows).
type Framebuffer struct {
	Width, Height uint32
	Pitch         uint32
	Buf           uintptr
	BufSize       uint32
}

// Ready reports whether the framebuffer has been sized and mapped.
func (f Framebuffer) Ready() bool {
	return f.Buf != 0 && f.Width != 0 && f.Height != 0
}

// Row returns a byte slice over row y of the framebuffer's backing
// memory, clamped to BufSize.
func (f Framebuffer) Row(y int) []byte {
	if !f.Ready() || y < 0 || uint32(y) >= f.Height {
		return nil
	}
	offset := uintptr(y) * uintptr(f.Pitch)
	if offset >= uintptr(f.BufSize) {
		return nil
	}
	n := uintptr(f.Pitch)
	if offset+n > uintptr(f.BufSize) {
		n = uintptr(f.BufSize) - offset
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(f.Buf+offset)), n)
}

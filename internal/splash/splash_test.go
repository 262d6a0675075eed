package splash

import (
	"testing"
	"unsafe"

	"kestrel/internal/board"
)

func fakeFramebuffer(w, h int) board.Framebuffer {
	pitch := w * 4
	buf := make([]byte, pitch*h)
	return board.Framebuffer{
		Width:   uint32(w),
		Height:  uint32(h),
		Pitch:   uint32(pitch),
		Buf:     uintptr(unsafe.Pointer(&buf[0])),
		BufSize: uint32(len(buf)),
	}
}

func TestDrawStatusThenFlushWritesOpaquePixels(t *testing.T) {
	fb := fakeFramebuffer(64, 32)
	r := NewRenderer(fb)
	r.DrawStatus("kestrel", board.Info{})
	r.Flush()

	row := fb.Row(0)
	if row == nil {
		t.Fatal("Row(0) returned nil for a ready framebuffer")
	}
	// Alpha/X byte (offset 3) must be the BGRX convention's 0x00, not
	// gg's own alpha -- Flush always writes 0 there, the "X" in BGRX.
	if row[3] != 0x00 {
		t.Fatalf("row[3] (X byte) = %#x, want 0x00", row[3])
	}
}

func TestFlushOnUnreadyFramebufferIsNoop(t *testing.T) {
	r := NewRenderer(board.Framebuffer{Width: 64, Height: 32})
	r.DrawStatus("kestrel", board.Info{})
	r.Flush() // Buf == 0, must not panic
}

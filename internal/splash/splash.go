// Package splash draws the boot banner and the live per-core status
// line onto the board framebuffer: a gg.Context-backed image.RGBA
// backbuffer, flushed once per second from the core-0 idle path. There
// is no cookie table here — the fortune-cookie content stays out of
// scope; this package only owns the mechanism that would draw one.
package splash

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"kestrel/internal/board"
	"kestrel/internal/cpu"
	"kestrel/internal/sched"
)

// Renderer owns the gg backbuffer and flushes it to a board.Framebuffer.
// One Renderer per kernel; built once the framebuffer is known to be
// live, never before.
type Renderer struct {
	ctx *gg.Context
	fb  board.Framebuffer
}

// NewRenderer builds a Renderer sized to fb's current dimensions. fb
// must already be Ready.
func NewRenderer(fb board.Framebuffer) *Renderer {
	return &Renderer{
		ctx: gg.NewContext(int(fb.Width), int(fb.Height)),
		fb:  fb,
	}
}

// DrawStatus renders the fixed status banner: board name, firmware
// version/revision if known, and one line per core showing its active
// pid (or idle) and the shared ready-queue depth.
func (r *Renderer) DrawStatus(boardName string, info board.Info) {
	r.ctx.SetRGB(0, 0, 0)
	r.ctx.Clear()
	r.ctx.SetRGB(1, 1, 1)

	y := 16.0
	r.ctx.DrawString(boardName, 8, y)
	y += 16

	if info.RevisionKnown {
		rev := board.Revision(info.Revision)
		if model, ok := rev.Model(); ok {
			r.ctx.DrawString(model, 8, y)
			y += 16
		}
	}

	depth := sched.ReadyDepth()
	r.ctx.DrawString(fmt.Sprintf("ready queue: %d", depth), 8, y)
	y += 16

	for core := 0; core < cpu.CoreCount; core++ {
		line := fmt.Sprintf("core %d: idle", core)
		if pid, ok := sched.ActivePid(core); ok {
			line = fmt.Sprintf("core %d: pid %d", core, pid)
		}
		r.ctx.DrawString(line, 8, y)
		y += 16
	}
}

// Flush copies the gg backbuffer into the framebuffer's XRGB8888 memory,
// converting gg's RGBA pixel layout to the board's BGRX layout the way
// the teacher's flushGGToFramebuffer does.
//
//go:nosplit
func (r *Renderer) Flush() {
	im, ok := r.ctx.Image().(*image.RGBA)
	if !ok {
		return
	}
	if !r.fb.Ready() {
		return
	}

	width := int(r.fb.Width)
	if width > im.Bounds().Dx() {
		width = im.Bounds().Dx()
	}
	height := int(r.fb.Height)
	if height > im.Bounds().Dy() {
		height = im.Bounds().Dy()
	}

	srcPix := im.Pix
	srcStride := im.Stride

	for y := 0; y < height; y++ {
		dstRow := r.fb.Row(y)
		if dstRow == nil {
			return
		}
		srcRow := srcPix[y*srcStride:]
		for x := 0; x < width; x++ {
			si := x * 4
			di := x * 4
			if di+3 >= len(dstRow) {
				break
			}
			r8 := srcRow[si+0]
			g8 := srcRow[si+1]
			b8 := srcRow[si+2]

			dstRow[di+0] = b8
			dstRow[di+1] = g8
			dstRow[di+2] = r8
			dstRow[di+3] = 0x00
		}
	}

	cpu.DsbSy()
}

package board

import "unsafe"

// VideoCore mailbox property-interface channel and register offsets,
// from the base address — see
// https://github.com/raspberrypi/firmware/wiki/Mailbox-property-interface.
// Translated from original_source's driver/device/raspi/mbox.rs, which
// hand-rolls the identical polling protocol. The raspi3/raspi4 boards
// drive the real VideoCore mailbox through Mailbox.call; boards without a
// mailbox leave internal/boot's activeMailbox nil.
const (
	mboxRead   = 0x00
	mboxStatus = 0x18
	mboxWrite  = 0x20

	mboxFull  = 1 << 31
	mboxEmpty = 1 << 30

	mboxChanProp = 8

	mboxRequest  = 0
	mboxResponse = 0x8000_0000

	tagGetFirmwareVersion = 0x00001
	tagGetBoardRevision   = 0x10002
	tagSetPhysicalSize    = 0x48003
	tagSetVirtualSize     = 0x48004
	tagSetDepth           = 0x48005
	tagAllocateBuffer     = 0x40001
	tagGetPitch           = 0x40008
	tagLast               = 0
)

// Mailbox is the VideoCore property-channel handle.
type Mailbox struct {
	Base uintptr
}

// call writes a 16-byte-aligned message buffer's address (tagged with
// chan) to the mailbox and polls for the matching response, exactly the
// source's call()'s wait-for-not-full / wait-for-not-empty / match-tag
// sequence.
func (m Mailbox) call(buf []uint32, chanID uint32) bool {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	if addr&0xF != 0 {
		return false
	}
	packed := uint32(addr&^0xF) | (chanID & 0xF)

	for mmioRead32(m.Base+mboxStatus)&mboxFull != 0 {
	}
	mmioWrite32(m.Base+mboxWrite, packed)

	for {
		for mmioRead32(m.Base+mboxStatus)&mboxEmpty != 0 {
		}
		if mmioRead32(m.Base+mboxRead) == packed {
			return buf[1] == mboxResponse
		}
	}
}

func (m Mailbox) getLen7U32(tag uint32) (uint32, bool) {
	buf := make([]uint32, 7)
	buf[0] = 7 * 4
	buf[1] = mboxRequest
	buf[2] = tag
	buf[3] = 4
	buf[4] = 4
	buf[5] = 0
	buf[6] = tagLast

	if !m.call(buf, mboxChanProp) {
		return 0, false
	}
	return buf[5], true
}

// FirmwareVersion queries the VideoCore firmware's own version tag.
func (m Mailbox) FirmwareVersion() (uint32, bool) {
	return m.getLen7U32(tagGetFirmwareVersion)
}

// BoardRevision queries the Pi revision code boot's banner decodes.
func (m Mailbox) BoardRevision() (uint32, bool) {
	return m.getLen7U32(tagGetBoardRevision)
}

// AllocateFramebuffer asks the VideoCore firmware for a width×height,
// 32bpp linear framebuffer, the same four-tag request (physical size,
// virtual size, depth, allocate buffer) plus a pitch query every
// Pi bare-metal framebuffer driver issues in one property-channel call.
// The allocate-buffer tag returns a bus address; VideoCore's bus
// addresses alias physical memory through the high bit set according to
// the SoC's L2 cache policy, which this kernel's identity-ish physical
// map does not need to decode specially since it runs with caches
// configured the way internal/mmu already maps all of DRAM.
func (m Mailbox) AllocateFramebuffer(width, height uint32) (Framebuffer, bool) {
	const bufLen = 35
	buf := make([]uint32, bufLen)
	buf[0] = bufLen * 4
	buf[1] = mboxRequest

	buf[2], buf[3], buf[4] = tagSetPhysicalSize, 8, 8
	buf[5], buf[6] = width, height

	buf[7], buf[8], buf[9] = tagSetVirtualSize, 8, 8
	buf[10], buf[11] = width, height

	buf[12], buf[13], buf[14] = tagSetDepth, 4, 4
	buf[15] = 32

	buf[16], buf[17], buf[18] = tagAllocateBuffer, 8, 8
	buf[19] = 4096 // alignment
	buf[20] = 0    // firmware fills in size here

	buf[21], buf[22], buf[23] = tagGetPitch, 4, 4
	buf[24] = 0

	buf[25] = tagLast

	if !m.call(buf, mboxChanProp) {
		return Framebuffer{}, false
	}

	busAddr := buf[19]
	size := buf[20]
	pitch := buf[24]
	if busAddr == 0 || size == 0 || pitch == 0 {
		return Framebuffer{}, false
	}

	return Framebuffer{
		Width:   width,
		Height:  height,
		Pitch:   pitch,
		Buf:     uintptr(busAddr &^ 0xC0000000),
		BufSize: size,
	}, true
}

// Query fills an Info from the mailbox, leaving zero values where the
// firmware (or a non-Pi board with no mailbox at all) never answers.
func (m Mailbox) Query() Info {
	var info Info
	if v, ok := m.FirmwareVersion(); ok {
		info.FirmwareVersion = v
	}
	if v, ok := m.BoardRevision(); ok {
		info.Revision = v
		info.RevisionKnown = true
	}
	return info
}

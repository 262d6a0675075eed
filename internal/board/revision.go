package board

import "kestrel/internal/bitfield"

// Revision decodes a Raspberry Pi board revision code's "new style"
// encoding: uuuuuuuu FMMMCCCC PPPPTTTT TTTTRRRR. Old-style codes (bit 23
// clear) carry none of these fields, so every query returns ok == false
// for them and the caller falls back to logging the raw word.
// https://www.raspberrypi.org/documentation/hardware/raspberrypi/revision-codes/README.md
type Revision uint32

// revisionFields mirrors the new-style encoding's contiguous nibbles in
// LSB-to-MSB order; struct-tag offsets let bitfield.Unpack do the shift
// and mask work once per query instead of every accessor repeating it.
type revisionFields struct {
	BoardRevisionNumber uint8 `bitfield:",4"`
	Model               uint8 `bitfield:",8"`
	Processor           uint8 `bitfield:",4"`
	Manufacturer        uint8 `bitfield:",4"`
	MemorySize          uint8 `bitfield:",3"`
	NewStyle            bool  `bitfield:",1"`
}

func (r Revision) decode() revisionFields {
	var f revisionFields
	// Only fails on a malformed tag, which is a programmer error in the
	// struct above, not a bad revision code — ignore it like a zero value.
	_ = bitfield.Unpack(uint64(r), &f, nil)
	return f
}

func (r Revision) newStyle() bool { return r.decode().NewStyle }

// MemoryMB reports the board's RAM size in megabytes.
func (r Revision) MemoryMB() (int, bool) {
	f := r.decode()
	if !f.NewStyle {
		return 0, false
	}
	switch f.MemorySize {
	case 0:
		return 256, true
	case 1:
		return 512, true
	case 2:
		return 1024, true
	case 3:
		return 2048, true
	case 4:
		return 4096, true
	case 5:
		return 8192, true
	default:
		return 0, false
	}
}

// Manufacturer names the board's silkscreened manufacturer code.
func (r Revision) Manufacturer() (string, bool) {
	f := r.decode()
	if !f.NewStyle {
		return "", false
	}
	switch f.Manufacturer {
	case 0:
		return "Sony UK", true
	case 1:
		return "Egoman", true
	case 2:
		return "Embest", true
	case 3:
		return "Sony Japan", true
	case 4:
		return "Embest", true
	case 5:
		return "Stadium", true
	default:
		return "unknown", true
	}
}

// Processor names the board's SoC.
func (r Revision) Processor() (string, bool) {
	f := r.decode()
	if !f.NewStyle {
		return "", false
	}
	switch f.Processor {
	case 0:
		return "BCM2835", true
	case 1:
		return "BCM2836", true
	case 2:
		return "BCM2837", true
	case 3:
		return "BCM2711", true
	default:
		return "unknown", true
	}
}

// Model names the board's form factor.
func (r Revision) Model() (string, bool) {
	f := r.decode()
	if !f.NewStyle {
		return "", false
	}
	switch f.Model {
	case 0:
		return "Model A", true
	case 1:
		return "Model B", true
	case 2:
		return "Model A+", true
	case 3:
		return "Model B+", true
	case 4:
		return "Compute Module", true
	case 6:
		return "Compute Module 2", true
	case 8:
		return "Model 3B", true
	case 0xD:
		return "Model 3B+", true
	case 0xE:
		return "Model 3A+", true
	case 0x11:
		return "Model 4B", true
	default:
		return "unknown", true
	}
}

// BoardRevisionNumber is the RRRR nibble, the manufacturer's own
// revision counter for this model.
func (r Revision) BoardRevisionNumber() uint32 {
	return uint32(r.decode().BoardRevisionNumber)
}

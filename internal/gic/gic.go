// Package gic drives a GICv2 distributor/CPU interface pair behind a
// board-agnostic Controller interface. The register layout and bring-up
// sequence are common to every GICv2 implementation; the base addresses
// are not — internal/boot's per-board files set them at boot, the same split the
// teacher kernel draws between its generic gic_qemu.go register pokes and
// the per-board linker symbols (__gic_base) that feed them.
package gic

import "unsafe"

// Controller is what internal/trap calls to route an acknowledged IRQ and
// what internal/boot calls once the distributor/CPU interface addresses
// are known. A board that has no GIC at all (or one not yet brought up)
// simply never calls InitDefault, leaving Default nil — trap treats a nil
// controller as "log and move on", not a broken invariant.
type Controller interface {
	Init(distBase, cpuBase uintptr)
	EnableIRQ(irq uint32)
	RegisterHandler(irq uint32, fn func())
	Acknowledge() uint32
	Dispatch(irq uint32)
}

// Register offsets, common to every GICv2 distributor/CPU interface.
const (
	gicdCtlr       = 0x000
	gicdIcpendrN   = 0x280
	gicdIgroupN    = 0x080
	gicdIsenablerN = 0x100
	gicdIpriorityN = 0x400
	gicdItargetsN  = 0x800
	gicdIcfgN      = 0xC00

	giccCtlr = 0x000
	giccPmr  = 0x004
	giccBpr  = 0x008
	giccIar  = 0x00C
	giccEoir = 0x010
)

const maxIRQ = 1020

func mmioWrite(addr uintptr, v uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = v
}

func mmioRead(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// GICv2 is the concrete distributor/CPU-interface pair. Zero value is
// unusable until Init sets the base addresses.
type GICv2 struct {
	distBase, cpuBase uintptr
	handlers          [maxIRQ]func()
}

// Init brings the distributor and CPU interface up: masks everything,
// routes every SPI to Group 0 / CPU 0, sets all priorities to the
// kernel's one working level, configures level-triggered mode, then
// re-enables both. Mirrors the teacher's gicInitFull sequence exactly —
// this bring-up order is what QEMU's virt GIC model actually accepts.
func (g *GICv2) Init(distBase, cpuBase uintptr) {
	g.distBase, g.cpuBase = distBase, cpuBase

	mmioWrite(g.distBase+gicdCtlr, 0)
	mmioWrite(g.cpuBase+giccCtlr, 0)

	mmioWrite(g.cpuBase+giccPmr, 0xFF)
	mmioWrite(g.cpuBase+giccBpr, 0)

	for i := 0; i < 32; i++ {
		mmioWrite(g.distBase+gicdIcpendrN+uintptr(i*4), 0xFFFFFFFF)
		mmioWrite(g.distBase+gicdIgroupN+uintptr(i*4), 0)
	}
	for i := 0; i < 256; i++ {
		mmioWrite(g.distBase+gicdIpriorityN+uintptr(i*4), 0x80808080)
		mmioWrite(g.distBase+gicdItargetsN+uintptr(i*4), 0x01010101)
	}
	for i := 0; i < 64; i++ {
		mmioWrite(g.distBase+gicdIcfgN+uintptr(i*4), 0)
	}

	mmioWrite(g.distBase+gicdCtlr, 0x01)
	mmioWrite(g.cpuBase+giccCtlr, 0x01)
}

// EnableIRQ sets irq's enable bit in the distributor's ISENABLER array.
func (g *GICv2) EnableIRQ(irq uint32) {
	if irq >= maxIRQ {
		return
	}
	reg := irq / 32
	bit := irq % 32
	mmioWrite(g.distBase+gicdIsenablerN+uintptr(reg*4), 1<<bit)
}

// RegisterHandler installs fn as irq's handler. Dispatch is a no-op for
// an irq with nothing registered.
func (g *GICv2) RegisterHandler(irq uint32, fn func()) {
	if irq >= maxIRQ {
		return
	}
	g.handlers[irq] = fn
}

// Dispatch runs irq's registered handler, if any, then signals end of
// interrupt. trap calls this with the ID the assembly trampoline already
// read out of GICC_IAR.
func (g *GICv2) Dispatch(irq uint32) {
	if irq < maxIRQ && g.handlers[irq] != nil {
		g.handlers[irq]()
	}
	mmioWrite(g.cpuBase+giccEoir, irq)
}

// Acknowledge reads and clears the highest-priority pending interrupt's
// ID out of GICC_IAR. 1023 means spurious — nothing was actually pending.
func (g *GICv2) Acknowledge() uint32 {
	return mmioRead(g.cpuBase+giccIar) & 0x3FF
}

var instance Controller

// InitDefault installs c as the GIC singleton. Unlike pager's
// InitDefault, a board with no interrupt controller brought up yet
// simply never calls this — Default returning nil is an expected boot
// state, not a broken invariant.
func InitDefault(c Controller) {
	instance = c
}

// Default returns the installed controller, or nil if none has been
// registered yet.
func Default() Controller {
	return instance
}

// Package boot is the kernel's entry path: the reset vector
// (start_arm64.s) picks the primary core and parks the rest, MasterInit
// brings the MMU and the kernel's own singletons up, and elx_arm64.s
// drops from EL3 (or EL2) into EL1h to start running el1Entry. Every
// other package assumes this has already happened; nothing outside
// boot is allowed to touch VBAR/TTBR/SCTLR.
package boot

import (
	"kestrel/internal/board"
	"kestrel/internal/cpu"
	"kestrel/internal/gic"
	"kestrel/internal/klog"
	"kestrel/internal/lisp"
	"kestrel/internal/memalloc"
	"kestrel/internal/mmu"
	"kestrel/internal/pagemgr"
	"kestrel/internal/pager"
	"kestrel/internal/runtime/atomic"
	"kestrel/internal/sched"
	"kestrel/internal/splash"
	"kestrel/internal/trap"
)

// EL1AddrOffset is added to every stack/link pointer computed before the
// MMU is live, once boot switches SP and execution onto the high
// (TTBR1) half of the address space. Matches memalloc.KernelHeapBase —
// the kernel's own heap and its own code/stack live in the same high
// window.
const EL1AddrOffset = 0xFFFF_0000_0000_0000

// BuildInfo is the static identity string the board bring-up banner and
// the teacher-style debug monitors print once, at boot.
type BuildInfo struct {
	Board string
}

var Build BuildInfo

// MemoryMap is the layout boot derives from the linker script before
// anything else can run: the kernel image's own section boundaries (so
// boot can log/protect them), the no-cache MMIO window, and the two
// address-space halves pager and memalloc already agree on the fixed
// bases for.
type MemoryMap struct {
	TextStart, TextEnd     uintptr
	RodataStart, RodataEnd uintptr
	DataStart, DataEnd     uintptr
	BssStart, BssEnd       uintptr
	StackBottom, StackTop  uintptr
	NoCacheStart, NoCacheEnd uintptr

	UserWindowStart, UserWindowEnd     uintptr
	KernelHeapStart, KernelHeapEnd     uintptr
}

type imageBounds struct {
	textStart, textEnd     uintptr
	rodataStart, rodataEnd uintptr
	dataStart, dataEnd     uintptr
	bssStart, bssEnd       uintptr
	stackBottom, stackTop  uintptr
	noCacheStart, noCacheEnd uintptr
}

func readLinkerBounds() imageBounds {
	return imageBounds{
		textStart:    textStartAddr(),
		textEnd:      textEndAddr(),
		rodataStart:  rodataStartAddr(),
		rodataEnd:    rodataEndAddr(),
		dataStart:    dataStartAddr(),
		dataEnd:      dataEndAddr(),
		bssStart:     bssStartAddr(),
		bssEnd:       bssEndAddr(),
		stackBottom:  stackBottomAddr(),
		stackTop:     stackTopAddr(),
		noCacheStart: noCacheStartAddr(),
		noCacheEnd:   noCacheEndAddr(),
	}
}

// buildMemoryMap folds linker-derived image bounds and the allocator's
// own fixed windows into one descriptor. Factored out from
// readLinkerBounds so it can be exercised without a real linked image.
func buildMemoryMap(b imageBounds) MemoryMap {
	userStart, _ := memalloc.UserWindow(0)
	_, lastWindowEnd := memalloc.UserWindow(uint8(cpu.CoreCount - 1))
	return MemoryMap{
		TextStart:   b.textStart,
		TextEnd:     b.textEnd,
		RodataStart: b.rodataStart,
		RodataEnd:   b.rodataEnd,
		DataStart:   b.dataStart,
		DataEnd:     b.dataEnd,
		BssStart:    b.bssStart,
		BssEnd:      b.bssEnd,
		StackBottom: b.stackBottom,
		StackTop:    b.stackTop,

		NoCacheStart: b.noCacheStart,
		NoCacheEnd:   b.noCacheEnd,

		UserWindowStart: userStart,
		UserWindowEnd:   lastWindowEnd,
		KernelHeapStart: memalloc.KernelHeapBase,
		KernelHeapEnd:   memalloc.KernelHeapBase + memalloc.SlabSize + memalloc.BuddySize,
	}
}

// mairValue builds MAIR_EL1: index 0 normal write-back, index 1 device
// nGnRE, index 2 normal non-cacheable — the same three-attribute split
// mmu.AttrNormal/AttrDevice/AttrNonCacheable index into.
func mairValue() uint64 {
	return 0xFF | 0x04<<8 | 0x44<<16
}

// tcrValue builds TCR_EL1 for a 64 KiB granule, 42-bit input address
// space on both halves (T0SZ/T1SZ = 64-42 = 22), inner/outer
// write-back cacheable, inner-shareable walks, TTBR1 walks enabled.
func tcrValue() uint64 {
	const (
		tg064k = 1 << 14 // TG0 = 01, 64KiB granule
		tg164k = 3 << 30 // TG1 = 11, 64KiB granule
	)
	var v uint64
	v |= 22 << 0 // T0SZ
	v |= 1 << 8  // IRGN0 = write-back
	v |= 1 << 10 // ORGN0 = write-back
	v |= 3 << 12 // SH0 = inner shareable
	v |= tg064k
	v |= 22 << 16 // T1SZ
	v |= 1 << 24  // IRGN1 = write-back
	v |= 1 << 26  // ORGN1 = write-back
	v |= 3 << 28  // SH1 = inner shareable
	v |= tg164k
	v |= 2 << 32 // IPS: 40-bit physical address range
	return v
}

// enableMMU programs MAIR/TCR/TTBR0/TTBR1 and flips SCTLR's M/C/I bits,
// the same order the teacher's mmu.go initialization follows (MAIR,
// verify, TCR, verify, TTBRs, then SCTLR last).
func enableMMU(user, kernel *mmu.TTable) {
	cpu.SetMairEL1(mairValue())
	cpu.SetTcrEL1(tcrValue())
	cpu.SetTtbr0EL1(uint64(uintptr(userTableBase(user))))
	cpu.SetTtbr1EL1(uint64(uintptr(kernelTableBase(kernel))))
	cpu.Isb()

	sctlr := cpu.SctlrEL1()
	sctlr |= 1 << 0 // M: MMU enable
	sctlr |= 1 << 2 // C: data cache enable
	sctlr |= 1 << 12 // I: instruction cache enable
	cpu.SetSctlrEL1(sctlr)
	cpu.Isb()
}

// userTableBase/kernelTableBase would resolve a *mmu.TTable to the
// physical base address hardware TTBR expects. This kernel's mmu.TTable
// is a software bookkeeping structure consulted by pager, not a raw
// identity-mapped table hardware walks directly — so until a physical
// table-pool allocator exists, these report the fixed window base the
// regime covers. Load-bearing once identity-mapped page tables for the
// MMU itself are built; a documented gap, not an oversight.
func userTableBase(t *mmu.TTable) uintptr   { return memalloc.UserBase }
func kernelTableBase(t *mmu.TTable) uintptr { return memalloc.KernelHeapBase }

// configureEL3ForEL1Drop sets HCR_EL2 and SCR_EL3 so the eventual ERET
// lands in EL1h, AArch64, with the NS/RW bits matching a non-secure
// 64-bit kernel the way the teacher's exception-level bring-up expects.
func configureEL3ForEL1Drop() {
	scr := cpu.ScrEL3()
	scr |= cpu.ScrNSBit
	scr |= cpu.ScrRWBit
	scr |= cpu.ScrHCEBit
	cpu.SetScrEL3(scr)

	hcr := cpu.HcrEL2()
	hcr |= 1 << 31 // RW: EL1 is AArch64
	cpu.SetHcrEL2(hcr)

	cpu.SetSpsrEL3(uint64(cpu.SpsrEL1hIRQEnabled)) // EL1h, DAIF unmasked
}

// userTable/kernelTable are built once, by whichever MasterInit* runs,
// and consulted again by EL1Entry once it installs the pager — the
// ERET between them changes exception level and PC, not the core's Go
// runtime state, so these survive the transition untouched.
var userTable, kernelTable *mmu.TTable

// Map is the MemoryMap MasterInit/MasterInitEL2 computed, consulted by
// EL1Entry's banner and available to anything else that wants to log
// the kernel image's own layout.
var Map MemoryMap

func buildTables() (user, kernel *mmu.TTable) {
	userTable = mmu.New(8192, 8192, 0)
	kernelTable = mmu.New(8192, 0, 8192)
	return userTable, kernelTable
}

// MasterInit runs once, on the primary core, at EL3. It builds the
// memory map and both translation tables, programs the MMU, configures
// the EL3->EL1 drop, and ERETs into el1Entry — from here execution
// continues in EL1Entry, never back here.
func MasterInit() {
	Map = buildMemoryMap(readLinkerBounds())

	enableMMU(buildTables())

	configureEL3ForEL1Drop()
	cpu.SetElrEL3(uint64(el1EntryAddr()))

	eretToEL1()
}

// MasterInitEL2 is MasterInit's analogue when firmware hands control to
// the kernel already at EL2 (no EL3 present, or EL3 already dropped by
// a bootloader). It omits every SCR_EL3 field and programs HCR_EL2
// directly before dropping straight to EL1h.
func MasterInitEL2() {
	Map = buildMemoryMap(readLinkerBounds())

	enableMMU(buildTables())

	hcr := cpu.HcrEL2()
	hcr |= 1 << 31 // RW
	cpu.SetHcrEL2(hcr)

	eretFromEL2ToEL1(el1EntryAddr())
}

// EL1Entry is where every core resumes after the EL3/EL2->EL1 drop. Core
// 0 brings the rest of the kernel's singletons up; every other core
// only installs its own vector base and waits to be scheduled.
func EL1Entry(coreID int) {
	cpu.SetVbarEL1(uint64(trap.VectorTableEL1Addr()))

	if coreID != 0 {
		SlaveInit(coreID)
		return
	}

	info := board.Info{}
	if mb := activeMailbox; mb != nil {
		info = mb.Query()
	}
	lastBoardInfo = info
	Build.Board = boardName()
	printBanner(info)

	frames := pagemgr.New(memalloc.KernelHeapBase, memalloc.KernelHeapBase+memalloc.SlabSize+memalloc.BuddySize)
	pager.InitDefault(pager.New(frames, userTable, kernelTable))
	memalloc.InitKernel()

	if c := gic.Default(); c != nil {
		c.Init(gicDistBase, gicCPUBase)

		if fb, ok := bootFramebuffer(); ok {
			initSplashTimer(c, splash.NewRenderer(fb))
		}
	}

	sched.EntryPoint = lisp.EntryAddr()
	sched.Init()

	atomic.StoreRel(&schedReady, 1)
}

// lastBoardInfo is the Info the splash timer's every-second redraw
// reads; captured once here since querying the mailbox again from an
// IRQ handler would mean polling VideoCore firmware on every tick.
var lastBoardInfo board.Info

// bootFramebuffer asks the build-tag-selected board for a fixed-size
// framebuffer to drive the splash banner: the VideoCore mailbox on the
// Pis, the bochs-display PCI device on QEMU's virt machine. A board with
// no display path wired — or whose device declines the allocation —
// simply never gets a status banner, the same degrade-gracefully rule
// board.Mailbox already applies to FirmwareVersion/BoardRevision.
func bootFramebuffer() (board.Framebuffer, bool) {
	if framebufferFunc == nil {
		return board.Framebuffer{}, false
	}
	return framebufferFunc(splashWidth, splashHeight)
}

const (
	splashWidth  = 640
	splashHeight = 480
)

// SlaveInit is the non-primary-core EL1 path: its own vector base is
// already installed by EL1Entry before this runs; it waits for core 0
// to finish bringing the scheduler up, then joins the ready-queue pull
// loop.
func SlaveInit(coreID int) {
	for !coreReady(coreID) {
		cpu.Wfe()
	}
	sched.Schedule()
}

// schedReady is set once, by core 0, after sched.Init() returns — the
// process table, its locks, and the pager/allocator singletons Schedule
// depends on all exist by then. Every other core spins on it before
// ever calling Schedule, instead of racing context-switch machinery
// against core 0's bring-up.
var schedReady uint32

func coreReady(coreID int) bool {
	return atomic.LoadAcq(&schedReady) != 0
}

// activeMailbox, gicDistBase/gicCPUBase, boardName and framebufferFunc
// are board-selection plumbing: each build-tag-selected board file
// (board_raspi3.go, board_raspi4.go, board_qemuvirt.go) sets these to
// its own hardware, and board_default.go supplies the zero-value
// fallback so this package still compiles and tests standalone with no
// board tag active.
var activeMailbox *board.Mailbox

var gicDistBase, gicCPUBase uintptr

var boardName func() string

var framebufferFunc func(width, height uint32) (board.Framebuffer, bool)

func printBanner(info board.Info) {
	klog.Msg("boot", "kestrel starting")
	klog.Hex64("boot", "firmware version=", uint64(info.FirmwareVersion))
	if info.RevisionKnown {
		rev := board.Revision(info.Revision)
		if mb, ok := rev.MemoryMB(); ok {
			klog.Hex64("boot", "memory mb=", uint64(mb))
		}
		if model, ok := rev.Model(); ok {
			klog.Msg("boot", model)
		}
	}
	klog.Hex64("boot", "current el=", cpu.CurrentEL())
	klog.Hex64("boot", "sctlr_el1=", cpu.SctlrEL1())
}

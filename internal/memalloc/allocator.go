// Package memalloc is the two-tier allocator family attached to each
// process and to the kernel: a slab front end for small fixed-size
// requests (slab.go) and a buddy back end for everything else (buddy.go).
// Layout is fixed per process: a 64 MiB window holding a 2 MiB stack
// (first page is a canary), 30 MiB of slab space, and 32 MiB of buddy
// space; the kernel gets its own 30 MiB slab + 32 MiB buddy region at a
// fixed base.
package memalloc

import "kestrel/internal/cpu"

// PageSize is the allocator's page granule — matches mmu.Granule,
// repeated here rather than imported to keep memalloc free of an mmu
// dependency (the allocator only ever deals in offsets within its own
// window; mapping those pages is pager's job).
const PageSize = 64 * 1024

// WindowSize is one process's total address-space window.
const WindowSize = 64 * 1024 * 1024

const (
	StackSize  = 2 * 1024 * 1024
	SlabSize   = 30 * 1024 * 1024
	BuddySize  = 32 * 1024 * 1024
	maxSlabReq = class32
)

// UserBase is the start of the per-process window region in the low
// (TTBR0) half of the address space.
const UserBase = 0x0001_0000_0000

// KernelHeapBase is the fixed base of the kernel's own slab+buddy region
// in the high (TTBR1) half.
const KernelHeapBase = 0xFFFF_0000_0000_0000

// Allocator pairs a slab front end and a buddy back end over one fixed
// window, demand-paged by the caller — Allocator itself only ever hands
// out offsets within [base, base+size), never touches physical memory or
// page tables.
type Allocator struct {
	lock cpu.SpinLock

	base, size uintptr
	slabBase   uintptr
	buddy      *buddyAlloc
	classes    [3]slabClass
}

// newAllocator builds an Allocator whose slab region starts at slabBase
// with slabSize bytes and whose buddy region starts at buddyBase with
// buddySize bytes (not necessarily contiguous with the slab region,
// though in this kernel they always are).
func newAllocator(slabBase, slabSize, buddyBase, buddySize uintptr) *Allocator {
	a := &Allocator{
		base:     slabBase,
		size:     slabSize + buddySize,
		slabBase: slabBase,
		buddy:    newBuddyAlloc(buddyBase, buddySize, PageSize),
	}
	a.classes[0] = slabClass{slotSize: class8}
	a.classes[1] = slabClass{slotSize: class16}
	a.classes[2] = slabClass{slotSize: class32}
	return a
}

// NewUserAllocator builds the allocator for process id's 64 MiB window.
func NewUserAllocator(id uint8) *Allocator {
	win := UserBase + uintptr(id)*WindowSize
	slabBase := win + StackSize
	buddyBase := slabBase + SlabSize
	return newAllocator(slabBase, SlabSize, buddyBase, BuddySize)
}

// NewKernelAllocator builds the kernel's own slab+buddy allocator.
func NewKernelAllocator() *Allocator {
	return newAllocator(KernelHeapBase, SlabSize, KernelHeapBase+SlabSize, BuddySize)
}

var kernelInstance *Allocator

// InitKernel builds and installs the singleton kernel allocator. Called
// once from boot, after the kernel's TTBR1 window is mapped and before
// anything in the kernel calls Kernel.
func InitKernel() *Allocator {
	kernelInstance = NewKernelAllocator()
	return kernelInstance
}

// Kernel returns the singleton installed by InitKernel, or nil if boot
// hasn't called it yet.
func Kernel() *Allocator {
	return kernelInstance
}

// nextSlabPage hands out the next unused page within the slab region for
// a given class to claim; pages are never shared between classes once
// claimed.
func (a *Allocator) nextSlabPage() (uintptr, bool) {
	used := uintptr(0)
	for i := range a.classes {
		used += uintptr(len(a.classes[i].pages)) * PageSize
	}
	if used+PageSize > SlabSize {
		return 0, false
	}
	return a.slabBase + used, true
}

// Alloc reserves size bytes, routing to the slab front end when size fits
// a size class, otherwise to the buddy back end.
func (a *Allocator) Alloc(size uintptr) (uintptr, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if cls, ok := classFor(size); ok {
		for i := range a.classes {
			if a.classes[i].slotSize == cls {
				return a.classes[i].alloc(a.nextSlabPage)
			}
		}
	}
	return a.buddy.alloc(size)
}

// Free releases an address previously returned by Alloc.
func (a *Allocator) Free(addr uintptr) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if addr >= a.slabBase && addr < a.slabBase+SlabSize {
		for i := range a.classes {
			if a.classes[i].free(addr) {
				return
			}
		}
		return
	}
	a.buddy.free(addr)
}

// IsUserMem reports whether addr falls inside process id's slab or buddy
// region (not its stack or canary).
func IsUserMem(id uint8, addr uintptr) bool {
	win := UserBase + uintptr(id)*WindowSize
	return addr >= win+StackSize && addr < win+WindowSize
}

// IsUserCanary reports whether addr falls on process id's canary page,
// the first page of its window.
func IsUserCanary(id uint8, addr uintptr) bool {
	win := UserBase + uintptr(id)*WindowSize
	return addr >= win && addr < win+PageSize
}

// IsKernMem reports whether addr falls inside the kernel's own
// slab+buddy region.
func IsKernMem(addr uintptr) bool {
	return addr >= KernelHeapBase && addr < KernelHeapBase+SlabSize+BuddySize
}

// UserStack returns the top of process id's 2 MiB stack (the address one
// past the last valid byte — the initial SP value).
func UserStack(id uint8) uintptr {
	win := UserBase + uintptr(id)*WindowSize
	return win + StackSize
}

// UserWindow returns the full [start, end) range of process id's window,
// for pager.UnmapUserAll to walk on process exit.
func UserWindow(id uint8) (start, end uintptr) {
	win := UserBase + uintptr(id)*WindowSize
	return win, win + WindowSize
}

// Descriptor is the fixed-size, no-pointer view of a process's window
// layout handed across the SetAllocator syscall boundary: userland keeps
// its own copy of this shape so it can compute slab/buddy addresses
// directly instead of asking the kernel for every allocation.
type Descriptor struct {
	SlabBase, SlabSize   uintptr
	BuddyBase, BuddySize uintptr
}

// DescribeUser builds the Descriptor for process id's window.
func DescribeUser(id uint8) Descriptor {
	win := UserBase + uintptr(id)*WindowSize
	slabBase := win + StackSize
	return Descriptor{
		SlabBase:  slabBase,
		SlabSize:  SlabSize,
		BuddyBase: slabBase + SlabSize,
		BuddySize: BuddySize,
	}
}

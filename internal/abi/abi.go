// Package abi is the userland side of the kernel's 8-call SVC ABI: thin
// Go wrappers around the assembly trampolines in stub_arm64.s, each of
// which loads the syscall code into X0, its arguments into X1/X2, issues
// `svc #0`, and reads the result back out of X0. internal/lisp — the
// kernel's one userland program — calls these instead of trapping
// directly, the same shape the original kernel's userland.rs gets from
// its own syscall.rs wrappers.
package abi

import (
	"unsafe"

	"kestrel/internal/memalloc"
	"kestrel/internal/sched"
)

// Syscall codes, mirrored from internal/svc so this package never needs
// to import the kernel-side dispatcher.
const (
	sysSpawn        = 1
	sysExit         = 2
	sysSchedYield   = 3
	sysGetPid       = 4
	sysSend         = 5
	sysRecv         = 6
	sysSetAllocator = 7
	sysUnmap        = 8
)

// svc0/svc1/svc2 are the raw trampolines: code always in X0, up to two
// uintptr-sized arguments in X1/X2, the result read back from X0.
//
//go:noescape
func svc0(code uint64) int64

//go:noescape
func svc1(code uint64, arg1 uint64) int64

//go:noescape
func svc2(code uint64, arg1, arg2 uint64) int64

// Spawn creates a new process running the kernel's single userland entry
// point with app as its application id, returning its pid on success.
func Spawn(app uint32) (pid uint32, ok bool) {
	ret := svc1(sysSpawn, uint64(app))
	if ret < 0 {
		return 0, false
	}
	return uint32(ret), true
}

// Exit terminates the calling process. Never returns.
func Exit() {
	svc0(sysExit)
	for {
	}
}

// SchedYield gives up the remainder of the calling process's turn.
func SchedYield() {
	svc0(sysSchedYield)
}

// GetPid returns the calling process's own pid.
func GetPid() uint32 {
	return uint32(svc0(sysGetPid))
}

// Send delivers val to dst, tagged with the caller's own identity by the
// kernel. Returns false if dst's channel was full or dst no longer
// exists.
func Send(dst *sched.Locator, val uint64) bool {
	return svc2(sysSend, uint64(uintptr(unsafe.Pointer(dst))), val) == 1
}

// Recv blocks until a message arrives on the caller's own channel,
// filling src with the sender's identity and returning the value.
func Recv(src *sched.Locator) uint64 {
	return uint64(svc1(sysRecv, uint64(uintptr(unsafe.Pointer(src)))))
}

// SetAllocator fills desc with the caller's window layout (slab/buddy
// base and size), letting userland drive its own allocation without a
// syscall per Alloc/Free.
func SetAllocator(desc *memalloc.Descriptor) {
	svc1(sysSetAllocator, uint64(uintptr(unsafe.Pointer(desc))))
}

// Unmap releases [start, end) of the caller's own window back to the
// kernel, freeing any frames resident in it.
func Unmap(start, end uintptr) {
	svc2(sysUnmap, uint64(start), uint64(end))
}

package svc

import (
	"unsafe"

	"kestrel/internal/memalloc"
	"kestrel/internal/sched"
)

// readLocator and writeLocator cross the syscall boundary the same way
// the original kernel's own SYS_SEND/SYS_RECV do: the caller passes the
// virtual address of a Locator living in its own window, and since TTBR0
// always holds the calling process's own table while its syscall runs,
// the kernel can address it directly without a copy-in/copy-out step.
func readLocator(addr uintptr) sched.Locator {
	return *(*sched.Locator)(unsafe.Pointer(addr))
}

func writeLocator(addr uintptr, loc sched.Locator) {
	*(*sched.Locator)(unsafe.Pointer(addr)) = loc
}

// writeDescriptor is SetAllocator's out-parameter write, the same
// direct-addressing trick as readLocator/writeLocator.
func writeDescriptor(addr uintptr, d memalloc.Descriptor) {
	*(*memalloc.Descriptor)(unsafe.Pointer(addr)) = d
}

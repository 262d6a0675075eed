// Command kestrel is the kernel image's package main. It exists so `go
// build` has something to link: the real entry point is
// internal/boot/start_arm64.s's _rt0_arm64_kestrel, which the kernel's
// linker script points the ELF entry address at directly, calling
// boot.MasterInit or boot.MasterInitEL2 without ever going through
// Go's own runtime startup. main here is dead code on real hardware —
// it only guarantees internal/boot (and everything boot imports, down
// through internal/lisp) gets compiled and linked in.
package main

import "kestrel/internal/boot"

func main() {
	boot.MasterInit()
	for {
	}
}

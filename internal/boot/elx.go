package boot

//go:noescape
func el1EntryAddr() uintptr

//go:noescape
func eretToEL1()

//go:noescape
func eretFromEL2ToEL1(entry uintptr)

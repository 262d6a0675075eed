//go:build !raspi3 && !raspi4 && !qemuvirt && !pine64

package boot

// No board tag selected: every piece of board-selection plumbing stays
// at its zero value except boardName, so this package (and its tests)
// still link and run without picking real hardware. activeMailbox nil
// and framebufferFunc nil both mean "no display, no VideoCore" — the
// same degrade-gracefully states a real board can end up in anyway.
func init() {
	boardName = func() string { return "kestrel" }
}

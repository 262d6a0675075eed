package mmu

import "testing"

func TestMapThenTranslateRoundTrips(t *testing.T) {
	tt := New(4, 2*lv3Count, 0)
	va := uintptr(0x1000_0000)
	pa := uintptr(0x5000_0000)

	tt.Map(va, pa, UserPageFlag())
	got, ok := tt.Translate(va)
	if !ok {
		t.Fatalf("expected Translate to report the mapping as valid")
	}
	if got != pa {
		t.Fatalf("Translate(%#x) = %#x, want %#x", va, got, pa)
	}
}

func TestTranslateWithinPageOffsetsCorrectly(t *testing.T) {
	tt := New(4, 2*lv3Count, 0)
	base := uintptr(0x2000_0000)
	pa := uintptr(0x6000_0000)
	tt.Map(base, pa, UserPageFlag())

	off := uintptr(0x1234)
	got, ok := tt.Translate(base + off)
	if !ok {
		t.Fatalf("expected Translate to succeed for an address inside the mapped page")
	}
	if got != pa+off {
		t.Fatalf("Translate(base+off) = %#x, want %#x", got, pa+off)
	}
}

func TestUnmapClearsTranslation(t *testing.T) {
	tt := New(4, 2*lv3Count, 0)
	va := uintptr(0x3000_0000)
	tt.Map(va, 0x7000_0000, UserPageFlag())
	tt.Unmap(va)
	if _, ok := tt.Translate(va); ok {
		t.Fatalf("expected Translate to fail after Unmap")
	}
}

func TestTranslateUnmappedAddressFails(t *testing.T) {
	tt := New(4, 2*lv3Count, 0)
	if _, ok := tt.Translate(0x9000_0000); ok {
		t.Fatalf("expected Translate to fail for a never-mapped address")
	}
}

func TestHighHalfMapsIndependentlyOfLowHalf(t *testing.T) {
	tt := New(8, 2*lv3Count, 2*lv3Count)
	lowVA := uintptr(0x1000_0000)       // lv2 index 0
	highVA := uintptr(6) << lv2Shift    // lv2 index 6, inside the reserved high-half tables

	tt.Map(lowVA, 0x5000_0000, UserPageFlag())
	tt.Map(highVA, 0x8000_0000, KernelPageFlag())

	if got, ok := tt.Translate(lowVA); !ok || got != 0x5000_0000 {
		t.Fatalf("low-half translate = %#x, %v", got, ok)
	}
	if got, ok := tt.Translate(highVA); !ok || got != 0x8000_0000 {
		t.Fatalf("high-half translate = %#x, %v", got, ok)
	}
}

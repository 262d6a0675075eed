package pagemgr

import "testing"

func TestAllocReturnsDistinctAlignedFrames(t *testing.T) {
	m := New(0x1000_0000, 0x1000_0000+16*Granule)
	seen := map[uintptr]bool{}
	for i := 0; i < 16; i++ {
		addr, ok := m.Alloc()
		if !ok {
			t.Fatalf("alloc %d: expected success", i)
		}
		if addr%Granule != 0 {
			t.Fatalf("alloc %d: addr %#x not Granule-aligned", i, addr)
		}
		if seen[addr] {
			t.Fatalf("alloc %d: addr %#x returned twice", i, addr)
		}
		seen[addr] = true
	}
	if _, ok := m.Alloc(); ok {
		t.Fatalf("expected exhaustion after covering the whole range")
	}
}

func TestFreeAllowsReallocation(t *testing.T) {
	m := New(0x2000_0000, 0x2000_0000+4*Granule)
	var addrs []uintptr
	for i := 0; i < 4; i++ {
		a, ok := m.Alloc()
		if !ok {
			t.Fatalf("alloc %d failed", i)
		}
		addrs = append(addrs, a)
	}
	m.Free(addrs[2])
	got, ok := m.Alloc()
	if !ok {
		t.Fatalf("expected allocation to succeed after a free")
	}
	if got != addrs[2] {
		t.Fatalf("expected freed frame %#x to be reused, got %#x", addrs[2], got)
	}
}

func TestOccupancyBitsAreMonotone(t *testing.T) {
	m := New(0x3000_0000, 0x3000_0000+128*Granule)
	for i := 0; i < 128; i++ {
		if _, ok := m.Alloc(); !ok {
			t.Fatalf("alloc %d failed before exhaustion", i)
		}
	}
	for i1 := 0; i1 < 2; i1++ {
		for i2 := 0; i2 < 64; i2++ {
			full := m.book[i1].pages[i2] == ^uint64(0)
			bitSet := m.vacancyPages[i1]&(1<<uint(i2)) != 0
			if full != bitSet {
				t.Fatalf("vacancyPages[%d] bit %d = %v, but book full = %v", i1, i2, bitSet, full)
			}
		}
	}
}

func TestFreeRejectsMisalignedAddress(t *testing.T) {
	m := New(0x4000_0000, 0x4000_0000+Granule)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Free to panic on a misaligned address")
		}
	}()
	m.Free(0x4000_0001)
}

func TestFreeRejectsDoubleFree(t *testing.T) {
	m := New(0x6000_0000, 0x6000_0000+Granule)
	addr, ok := m.Alloc()
	if !ok {
		t.Fatalf("expected initial allocation to succeed")
	}
	m.Free(addr)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected second Free of the same address to panic")
		}
	}()
	m.Free(addr)
}

func TestFreeRejectsNeverAllocatedAddress(t *testing.T) {
	m := New(0x7000_0000, 0x7000_0000+4*Granule)
	if _, ok := m.Alloc(); !ok {
		t.Fatalf("expected allocation to succeed")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Free of a never-allocated but in-range address to panic")
		}
	}()
	m.Free(0x7000_0000 + 2*Granule)
}

func TestNewMarksOutOfRangeTailAllocated(t *testing.T) {
	m := New(0x5000_0000, 0x5000_0000+3*Granule)
	for i := 0; i < 3; i++ {
		if _, ok := m.Alloc(); !ok {
			t.Fatalf("alloc %d: expected the three in-range frames to succeed", i)
		}
	}
	if _, ok := m.Alloc(); ok {
		t.Fatalf("expected the padded-out tail frames to never be handed out")
	}
}

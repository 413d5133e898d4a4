package heap

import "testing"

func TestGetVecCarvesFromTop(t *testing.T) {
	al := New(19900)

	a := al.GetVec(10, 500)
	if a != 19890 {
		t.Fatalf("first allocation = %d, want 19890", a)
	}
	b := al.GetVec(10, 500)
	if b != 19880 {
		t.Fatalf("second allocation = %d, want 19880", b)
	}
	if al.Top() != 19879 {
		t.Errorf("heap top = %d, want 19879", al.Top())
	}
	if al.BlockSize(a) != 10 || al.BlockSize(b) != 10 {
		t.Errorf("ledger sizes = %d %d, want 10 10", al.BlockSize(a), al.BlockSize(b))
	}
}

func TestGetVecRejectsBadSizes(t *testing.T) {
	al := New(19900)

	if got := al.GetVec(0, 500); got != 0 {
		t.Errorf("GetVec(0) = %d, want 0", got)
	}
	if got := al.GetVec(-3, 500); got != 0 {
		t.Errorf("GetVec(-3) = %d, want 0", got)
	}
	if got := al.GetVec(19900, 500); got != 0 {
		t.Errorf("GetVec(full image) = %d, want 0", got)
	}
}

func TestGetVecRefusesStackCollision(t *testing.T) {
	al := New(600)

	if got := al.GetVec(98, 500); got != 502 {
		t.Fatalf("allocation = %d, want 502", got)
	}
	// The next carve would reach down to word 492, inside the stack guard.
	if got := al.GetVec(10, 500); got != 0 {
		t.Errorf("colliding allocation = %d, want 0", got)
	}
}

func TestFreeVecUnknownBlock(t *testing.T) {
	al := New(19900)

	if got := al.FreeVec(12345); got != 0 {
		t.Errorf("FreeVec of unknown address = %d, want 0", got)
	}

	a := al.GetVec(8, 500)
	if got := al.FreeVec(a + 1); got != 0 {
		t.Errorf("FreeVec of block interior = %d, want 0", got)
	}
	if got := al.FreeVec(a); got != 1 {
		t.Errorf("FreeVec = %d, want 1", got)
	}
	if got := al.FreeVec(a); got != 0 {
		t.Errorf("double FreeVec = %d, want 0", got)
	}
}

// Freeing two adjacent blocks must merge them into one range that a larger
// request can reuse instead of carving fresh words from the top.
func TestCoalescing(t *testing.T) {
	al := New(19900)

	a := al.GetVec(10, 500) // 19890
	b := al.GetVec(10, 500) // 19880
	c := al.GetVec(10, 500) // 19870

	if al.FreeVec(b) != 1 || al.FreeVec(a) != 1 {
		t.Fatal("frees failed")
	}

	topBefore := al.Top()
	got := al.GetVec(20, 500)
	if got != b {
		t.Errorf("GetVec(20) = %d, want coalesced block at %d", got, b)
	}
	if al.Top() != topBefore {
		t.Errorf("heap top moved to %d; coalesced block should have been reused", al.Top())
	}
	if al.BlockSize(c) != 10 {
		t.Errorf("unrelated block size = %d, want 10", al.BlockSize(c))
	}
}

func TestFirstFitSplitsLowPart(t *testing.T) {
	al := New(19900)

	a := al.GetVec(10, 500)
	al.GetVec(10, 500) // keep the region below a live
	if al.FreeVec(a) != 1 {
		t.Fatal("free failed")
	}

	small := al.GetVec(4, 500)
	if small != a {
		t.Errorf("split allocation = %d, want low part of freed block %d", small, a)
	}
	rest := al.GetVec(6, 500)
	if rest != a+4 {
		t.Errorf("remainder allocation = %d, want %d", rest, a+4)
	}
}

// After any alloc/free sequence the live blocks and the free list must
// partition the region above the heap top without overlap.
func TestPartitionInvariant(t *testing.T) {
	al := New(19900)

	addrs := []int{}
	for _, n := range []int{5, 12, 1, 30, 7} {
		a := al.GetVec(n, 500)
		if a == 0 {
			t.Fatalf("GetVec(%d) failed", n)
		}
		addrs = append(addrs, a)
	}
	al.FreeVec(addrs[1])
	al.FreeVec(addrs[3])
	addrs[1] = al.GetVec(3, 500)
	al.FreeVec(addrs[0])

	used := map[int]string{}
	mark := func(start, size int, kind string) {
		for i := start; i < start+size; i++ {
			if prev, ok := used[i]; ok {
				t.Fatalf("word %d claimed by both %s and %s", i, prev, kind)
			}
			used[i] = kind
		}
	}
	for a := al.Top() + 1; a < 19900; a++ {
		if s := al.BlockSize(a); s > 0 {
			mark(a, s, "live")
		}
	}
	for _, s := range al.free {
		mark(s.addr, s.size, "free")
	}
	for i := al.Top() + 1; i < 19900; i++ {
		if _, ok := used[i]; !ok {
			t.Fatalf("word %d above heap top is neither live nor free", i)
		}
	}

	// Adjacent free ranges must have been merged.
	for i := 1; i < len(al.free); i++ {
		if al.free[i-1].addr+al.free[i-1].size == al.free[i].addr {
			t.Errorf("free ranges %v and %v left unmerged", al.free[i-1], al.free[i])
		}
	}
}

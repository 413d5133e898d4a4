// Package heap implements the interpreter's word allocator: a first-fit
// free list with address-ordered coalescing over a downward-growing region
// at the top of the memory image. The allocator is pure bookkeeping; it
// never touches image contents.
package heap

import "sort"

// span is a free range of size words starting at addr.
type span struct {
	addr, size int
}

// Allocator hands out word-aligned blocks from the top of the image. Freed
// blocks go onto an address-ordered free list and adjacent ranges are
// merged, so the live blocks and the free list always partition the region
// below the original top.
type Allocator struct {
	words int   // image size in words
	top   int   // highest unallocated word
	sizes []int // allocation ledger: sizes[a] > 0 iff a live block starts at a
	free  []span
}

// New creates an allocator over an image of the given word count.
func New(words int) *Allocator {
	return &Allocator{
		words: words,
		top:   words - 1,
		sizes: make([]int, words),
	}
}

// GetVec allocates n words and returns the block's start address, or 0 when
// n is unusable or no space is left. sp is the current stack pointer: a
// fresh carve from the top of the heap must leave a gap above it.
func (al *Allocator) GetVec(n int, sp uint16) int {
	if n <= 0 || n >= al.words {
		return 0
	}

	// First fit from the address-ordered free list.
	for i, s := range al.free {
		if s.size < n {
			continue
		}
		if s.size == n {
			al.free = append(al.free[:i], al.free[i+1:]...)
		} else {
			al.free[i] = span{s.addr + n, s.size - n}
		}
		al.sizes[s.addr] = n
		return s.addr
	}

	// Carve from the top of the heap.
	if al.top < n {
		return 0
	}
	start := al.top + 1 - n
	if start <= int(sp)+1 {
		return 0
	}
	al.top = start - 1
	al.sizes[start] = n
	return start
}

// FreeVec releases the block starting at a. It returns 1 on success and 0
// when a is not the start of a live block.
func (al *Allocator) FreeVec(a int) int {
	if a < 0 || a >= al.words {
		return 0
	}
	size := al.sizes[a]
	if size == 0 {
		return 0
	}
	al.sizes[a] = 0
	al.free = append(al.free, span{a, size})
	sort.Slice(al.free, func(i, j int) bool { return al.free[i].addr < al.free[j].addr })

	merged := al.free[:0]
	for _, s := range al.free {
		if n := len(merged); n > 0 && merged[n-1].addr+merged[n-1].size == s.addr {
			merged[n-1].size += s.size
			continue
		}
		merged = append(merged, s)
	}
	al.free = merged
	return 1
}

// Top returns the highest unallocated word of the heap region.
func (al *Allocator) Top() int {
	return al.top
}

// BlockSize returns the size of the live block starting at a, or 0.
func (al *Allocator) BlockSize(a int) int {
	if a < 0 || a >= al.words {
		return 0
	}
	return al.sizes[a]
}

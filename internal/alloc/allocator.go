package alloc

import (
	"fmt"
	"sort"
)

// Allocator tracks space within a file image being written.
type Allocator struct {
	eof    uint64
	base   uint64
	blocks []Block
	stats  Stats
}

// Block is one allocation.
type Block struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Stats summarizes the allocations made.
type Stats struct {
	Blocks  int
	Bytes   uint64
	Padding uint64
	Largest uint64
}

// New creates an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{eof: base, base: base}
}

// Alloc reserves size bytes at the end of file and returns their address.
// A zero size returns the current end of file without recording a block.
func (a *Allocator) Alloc(size uint64, tag string) uint64 {
	if size == 0 {
		return a.eof
	}
	addr := a.eof
	a.eof += size
	a.blocks = append(a.blocks, Block{Addr: addr, Size: size, Tag: tag})

	a.stats.Blocks++
	a.stats.Bytes += size
	if size > a.stats.Largest {
		a.stats.Largest = size
	}
	return addr
}

// AllocAligned is Alloc with the start rounded up to a multiple of align.
func (a *Allocator) AllocAligned(size, align uint64, tag string) uint64 {
	if align > 1 {
		if rem := a.eof % align; rem != 0 {
			a.eof += align - rem
			a.stats.Padding += align - rem
		}
	}
	return a.Alloc(size, tag)
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 { return a.eof }

// Base returns the address of the first allocatable byte.
func (a *Allocator) Base() uint64 { return a.base }

// Stats returns the allocation statistics.
func (a *Allocator) Stats() Stats { return a.stats }

// Blocks returns the allocations in address order.
func (a *Allocator) Blocks() []Block {
	out := append([]Block(nil), a.blocks...)
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Validate checks that no two blocks overlap and all lie within
// [base, eof).
func (a *Allocator) Validate() error {
	var prev *Block
	for _, b := range a.Blocks() {
		if b.Addr < a.base || b.Addr+b.Size > a.eof {
			return fmt.Errorf("block %q at 0x%x size %d outside [0x%x, 0x%x)", b.Tag, b.Addr, b.Size, a.base, a.eof)
		}
		if prev != nil && prev.Addr+prev.Size > b.Addr {
			return fmt.Errorf("block %q at 0x%x overlaps %q at 0x%x", b.Tag, b.Addr, prev.Tag, prev.Addr)
		}
		b := b
		prev = &b
	}
	return nil
}

// Package alloc hands out file addresses while a netCDF-4 file image is laid
// out in memory.
//
// Allocation is append-only: each block starts at the current end of file,
// optionally aligned, and the end of file advances past it. Every block is
// recorded with a tag so a finished layout can be checked for overlaps and
// summarized in debug logs.
//
//	a := alloc.New(superblockSize)
//	data := a.Alloc(4096, "raw:temperature")
//	hdr := a.AllocAligned(312, 8, "ohdr:temperature")
package alloc

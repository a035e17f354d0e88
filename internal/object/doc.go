// Package object encodes and decodes version 2 HDF5 object headers.
//
// An object header is the metadata block behind every group and dataset:
// a signature, a flags byte, the size of the first (and here only) chunk,
// the header messages, and a Jenkins lookup3 checksum.
//
//	0       4     Signature ("OHDR")
//	4       1     Version (2)
//	5       1     Flags
//	              Bit 0-1: width of the chunk#0 size field (1 << value bytes)
//	              Bit 2:   attribute creation order tracked
//	              Bit 3:   attribute creation order indexed
//	              Bit 4:   attribute storage phase change values stored
//	              Bit 5:   access, modification, change and birth times stored
//	6       var   Times (16 bytes, if bit 5)
//	var     var   Phase change values (4 bytes, if bit 4)
//	var     1-8   Size of chunk#0
//	var     var   Messages
//	var     4     Checksum
//
// Each message inside the chunk is
//
//	type(1) size(2) flags(1) [creation order(2), if bit 2] data(size)
//
// Headers are always written as a single chunk, so continuation messages
// are never produced and are rejected when reading.
package object

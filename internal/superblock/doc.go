// Package superblock reads and writes the HDF5 superblock, the fixed
// entry point at the start of every netCDF-4 file.
//
// Only versions 2 and 3 are handled. Both share one layout:
//
//	0       8     Signature (\x89HDF\r\n\x1a\n)
//	8       1     Version
//	9       1     Size of offsets
//	10      1     Size of lengths
//	11      1     File consistency flags
//	12      O     Base address
//	12+O    O     Superblock extension address
//	12+2O   O     End of file address
//	12+3O   O     Root group object header address
//	12+4O   4     Checksum (lookup3)
//
// The signature may sit at byte 0 or any power of two from 512 upward when
// a user block precedes the HDF5 data.
package superblock

// Package heap reads and writes HDF5 global heap collections.
//
// A global heap collection (signature "GCOL") holds numbered objects that
// variable-length data points into by (collection address, object index).
// netCDF-4 files use one to store the object references of each data
// variable's DIMENSION_LIST attribute.
//
// Collection layout:
//
//	0       4     Signature ("GCOL")
//	4       1     Version (1)
//	5       3     Reserved
//	8       L     Collection size, header included
//	8+L     var   Objects
//
// Each object is
//
//	index(2) reference count(2) reserved(4) size(L) data, padded to 8 bytes
//
// Object 0, when present, is the free space at the end of the collection.
// Its size field covers the remaining bytes including its own header.
package heap

// Package dtype maps dataset element kinds to HDF5 datatypes and converts
// values to and from their little-endian file representation.
//
// Type mapping:
//
//	Kind              | HDF5 class      | Size
//	------------------|-----------------|-----
//	Int8..Int64       | fixed-point     | 1..8, signed
//	Uint8..Uint64     | fixed-point     | 1..8, unsigned
//	Float32, Float64  | floating-point  | 4, 8 (IEEE 754)
//	string attribute  | fixed string    | len+1, null terminated
//
// Three value paths go through this package: array cells being stored
// (Put*), single values that must fit a kind exactly such as fill values
// (Exact), and attribute values in both directions (EncodeAttribute,
// DecodeAttribute).
package dtype

// Package filter implements the HDF5 filters netCDF-4 uses for compressed
// variables: DEFLATE (ID 1) through klauspost/compress zlib, and byte
// shuffle (ID 2).
//
// A [Pipeline] is built from a filter pipeline message. Encoding runs the
// filters in message order; decoding runs them in reverse and skips any
// filter whose bit is set in the chunk's filter mask.
//
//	p, err := filter.NewPipeline(pipelineMsg)
//	stored, err := p.Encode(raw)
//	raw, err = p.Decode(stored, 0)
//
// Other filter IDs are rejected unless the message marks them optional.
package filter

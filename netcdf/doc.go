// Package netcdf encodes a dataset.Dataset as a netCDF-4 file and reads
// such files back.
//
// A netCDF-4 file is an HDF5 file that follows the netCDF-4 profile. Each
// coordinate becomes an HDF5 dimension scale, each data variable a dataset
// whose DIMENSION_LIST attribute points at its coordinates, and the
// dataset's global attributes sit on the root group. Attribute and link
// creation order is tracked so readers see attributes and variables in the
// order they were defined.
//
// The whole file is laid out in memory and then written in one pass:
//
//	ds := dataset.New()
//	// ... attach coordinates and data
//	enc := netcdf.NewResolver(ds)
//	enc.Configure("temperature", netcdf.Encoding{Type: dataset.Float32, FillValue: -9999, Compress: true})
//	err := netcdf.Write(ds, enc, "profile.nc")
//
// Write validates first and reports every problem at once as a
// *dataset.ValidationError. Nothing is written unless validation passes.
package netcdf

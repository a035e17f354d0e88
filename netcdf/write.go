package netcdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/dtype"
	"github.com/robert-malhotra/cfnc/internal/filter"
	"github.com/robert-malhotra/cfnc/internal/layout"
	"github.com/robert-malhotra/cfnc/internal/message"
	"github.com/robert-malhotra/cfnc/internal/object"
)

// Attribute names the netCDF-4 profile and HDF5 dimension scales use.
const (
	AttrFillValue     = "_FillValue"
	attrClass         = "CLASS"
	attrName          = "NAME"
	attrDimensionList = "DIMENSION_LIST"
	attrReferenceList = "REFERENCE_LIST"
	attrDimID         = "_Netcdf4Dimid"
	attrCoordinates   = "_Netcdf4Coordinates"
	attrProperties    = "_NCProperties"
	attrStrict        = "_nc3_strict"
	attrIsNetcdf4     = "_IsNetcdf4"

	dimensionScale = "DIMENSION_SCALE"
)

// reserved attributes are written by the encoder itself and never taken
// from an attribute store.
var reserved = map[string]bool{
	AttrFillValue:     true,
	attrClass:         true,
	attrName:          true,
	attrDimensionList: true,
	attrReferenceList: true,
	attrDimID:         true,
	attrCoordinates:   true,
	attrProperties:    true,
	attrStrict:        true,
	attrIsNetcdf4:     true,
}

// Write validates ds, finalizes it and writes it to path. The file is
// written to a temporary name in the same directory and renamed over path
// once complete, so path never holds a partial file. I/O failures are
// returned as *WriteError.
func Write(ds *dataset.Dataset, enc *Resolver, path string, opts ...Option) error {
	o := newOptions(opts)
	data, err := marshal(ds, enc, o)
	if err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	o.log.WithFields(logrus.Fields{
		"path":      path,
		"bytes":     len(data),
		"variables": len(ds.Variables()),
	}).Info("wrote netCDF-4 file")
	return nil
}

// Encode validates ds, finalizes it and writes the file image to w.
func Encode(w io.Writer, ds *dataset.Dataset, enc *Resolver, opts ...Option) error {
	data, err := Marshal(ds, enc, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// Marshal validates ds, finalizes it and returns the file image. A nil
// resolver encodes every variable with its default encoding.
func Marshal(ds *dataset.Dataset, enc *Resolver, opts ...Option) ([]byte, error) {
	return marshal(ds, enc, newOptions(opts))
}

func marshal(ds *dataset.Dataset, enc *Resolver, o *options) ([]byte, error) {
	plans, err := plan(ds, enc, o)
	if err != nil {
		return nil, err
	}
	if err := ds.Finalize(); err != nil {
		return nil, err
	}
	globals, problems := encodeAttrs("global", ds.Attrs())
	if len(problems) > 0 {
		return nil, (&dataset.ValidationError{Problems: problems}).Err()
	}
	for _, p := range plans {
		o.log.WithFields(logrus.Fields{
			"variable":   p.v.Name(),
			"type":       p.enc.Type.String(),
			"shape":      p.v.Shape(),
			"bytes":      p.rawSize,
			"stored":     len(p.stored),
			"compressed": p.pipeline != nil,
			"fill":       p.enc.FillValue,
		}).Debug("encoded variable")
	}
	return assemble(plans, globals, ds)
}

// varPlan is one variable ready to be placed in the file.
type varPlan struct {
	v        dataset.Variable
	enc      Encoding
	dims     []uint64
	dt       *message.Datatype
	fill     []byte
	rawSize  int
	stored   []byte
	pipeline *message.FilterPipeline
	attrs    []*message.Attribute

	refs     []reference // coordinates: the data variable axes using it
	heapIdx  []uint32    // data variables: DIMENSION_LIST heap objects
	dataAddr uint64
	hdrAddr  uint64
}

type reference struct {
	to   *varPlan
	axis int
}

// plan validates everything that can fail and converts every variable to
// its stored bytes. All problems are returned together.
func plan(ds *dataset.Dataset, r *Resolver, o *options) ([]*varPlan, error) {
	verr := &dataset.ValidationError{}
	verr.Add(ds.Validate())
	for _, problem := range ds.CheckConventions() {
		if o.strict {
			verr.Add(problem)
			continue
		}
		o.log.WithField("problem", problem.Error()).Warn("CF convention")
	}
	_, problems := encodeAttrs("global", ds.Attrs())
	for _, p := range problems {
		verr.Add(p)
	}

	var plans []*varPlan
	for _, v := range ds.Variables() {
		p, problems := planVariable(v, r.resolveFor(v))
		for _, e := range problems {
			verr.Add(e)
		}
		plans = append(plans, p)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

func planVariable(v dataset.Variable, enc Encoding) (*varPlan, []error) {
	name := v.Name()
	p := &varPlan{v: v, enc: enc}
	if err := checkEncoding(v, enc); err != nil {
		return p, []error{err}
	}
	p.dt, _ = dtype.ForKind(enc.Type)
	if enc.FillValue != nil {
		p.fill, _ = dtype.Exact(enc.Type, enc.FillValue)
	}
	for _, d := range v.Shape() {
		p.dims = append(p.dims, uint64(d))
	}

	raw, problems := castArray(name, v.Values(), enc.Type, p.fill)
	p.rawSize = len(raw)
	p.stored = raw
	if enc.Compress && len(raw) > 0 && len(p.dims) > 0 {
		p.pipeline = &message.FilterPipeline{Filters: filter.Messages(enc.Type.Size(), enc.level(), enc.Shuffle)}
		var err error
		if p.stored, err = layout.Store(raw, p.pipeline); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}

	attrs, errs := encodeAttrs(name, v.Attrs())
	problems = append(problems, errs...)
	if p.fill != nil {
		attrs = append([]*message.Attribute{{
			Name:      AttrFillValue,
			Datatype:  p.dt,
			Dataspace: message.NewScalarDataspace(),
			Data:      p.fill,
		}}, attrs...)
	}
	p.attrs = attrs
	return p, problems
}

// encodeAttrs converts a store to attribute messages, rejecting reserved
// names and values too large for a header message.
func encodeAttrs(owner string, s *dataset.AttributeStore) ([]*message.Attribute, []error) {
	var (
		out      []*message.Attribute
		problems []error
	)
	cfg := binary.DefaultConfig()
	for _, a := range s.All() {
		if reserved[a.Key] {
			problems = append(problems, fmt.Errorf("%w: %s: attribute %q is reserved", ErrInvalidEncoding, owner, a.Key))
			continue
		}
		dt, ds, data, err := dtype.EncodeAttribute(a.Value)
		if err != nil {
			problems = append(problems, fmt.Errorf("%w: %s: attribute %q: %w", dataset.ErrInvalidAttribute, owner, a.Key, err))
			continue
		}
		m := &message.Attribute{Name: a.Key, Datatype: dt, Dataspace: ds, Data: data}
		if n := message.Size(m, cfg); n > object.MaxMessageSize {
			problems = append(problems, fmt.Errorf("%w: %s: attribute %q needs %d bytes, limit %d",
				dataset.ErrInvalidAttribute, owner, a.Key, n, object.MaxMessageSize))
			continue
		}
		out = append(out, m)
	}
	return out, problems
}

// writeFile writes data to a temporary file next to path, syncs it and
// renames it into place.
func writeFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Op: "create", Path: path, Err: err}
	}
	tmp := f.Name()
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return &WriteError{Op: "write", Path: path, Err: err}
	}
	if err = f.Chmod(0o644); err != nil {
		return &WriteError{Op: "chmod", Path: path, Err: err}
	}
	if err = f.Sync(); err != nil {
		return &WriteError{Op: "sync", Path: path, Err: err}
	}
	closed = true
	if err = f.Close(); err != nil {
		return &WriteError{Op: "close", Path: path, Err: err}
	}
	if err = os.Rename(tmp, path); err != nil {
		return &WriteError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

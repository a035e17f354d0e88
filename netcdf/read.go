package netcdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/dtype"
	"github.com/robert-malhotra/cfnc/internal/heap"
	"github.com/robert-malhotra/cfnc/internal/layout"
	"github.com/robert-malhotra/cfnc/internal/message"
	"github.com/robert-malhotra/cfnc/internal/object"
	"github.com/robert-malhotra/cfnc/internal/superblock"
)

// dimensionOnlyPrefix starts the NAME of a dimension scale that netCDF
// writers create for a dimension with no coordinate variable.
const dimensionOnlyPrefix = "This is a netCDF dimension but not a netCDF variable"

// File is a decoded netCDF-4 file. All values are read into memory.
type File struct {
	dims  []dataset.Dimension
	vars  []*Variable
	attrs *dataset.AttributeStore
}

// Variable is one decoded variable.
type Variable struct {
	Name       string
	Dims       []string
	Kind       dataset.Kind
	Shape      []int
	Attrs      *dataset.AttributeStore
	Values     *dataset.Array // cells equal to Fill are marked missing
	Fill       any            // nil when no _FillValue is stored
	Coordinate bool
	Compressed bool
	Level      int
	Shuffle    bool

	dimID int
	addr  uint64
}

// Encoding returns the encoding that reproduces v's storage.
func (v *Variable) Encoding() Encoding {
	return Encoding{Type: v.Kind, FillValue: v.Fill, Compress: v.Compressed, Level: v.Level, Shuffle: v.Shuffle}
}

// Open reads the netCDF-4 file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return Decode(io.NewSectionReader(f, 0, info.Size()))
}

// Decode reads a netCDF-4 file image.
func Decode(r io.ReaderAt) (*File, error) {
	sb, err := superblock.Read(r)
	switch {
	case errors.Is(err, superblock.ErrNotHDF5):
		return nil, fmt.Errorf("%w: %w", ErrNotNetCDF, err)
	case errors.Is(err, superblock.ErrUnsupportedVersion):
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	case err != nil:
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	base := int64(sb.BaseAddress)
	if base < 0 {
		return nil, fmt.Errorf("%w: base address %d", ErrNotNetCDF, sb.BaseAddress)
	}
	d := &decoder{
		ra:    io.NewSectionReader(r, base, sectionSize(r, base, sb.EOFAddress)),
		cfg:   sb.Config(),
		heaps: make(map[uint64]*heap.GlobalHeap),
	}
	return d.file(sb.RootGroupAddress)
}

// sectionSize bounds the addressable part of the file by the end of file
// address the superblock records and, when r knows it, the real size.
func sectionSize(r io.ReaderAt, base int64, eof uint64) int64 {
	size := int64(math.MaxInt64) - base
	if eof < uint64(size) {
		size = int64(eof)
	}
	if s, ok := r.(interface{ Size() int64 }); ok {
		size = min(size, max(s.Size()-base, 0))
	}
	return size
}

type decoder struct {
	ra    io.ReaderAt
	cfg   binary.Config
	heaps map[uint64]*heap.GlobalHeap
}

func (d *decoder) header(addr uint64) (*object.Header, error) {
	hdr, err := object.Read(d.ra, addr, d.cfg)
	if errors.Is(err, message.ErrUnsupported) {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return hdr, err
}

func (d *decoder) file(rootAddr uint64) (*File, error) {
	root, err := d.header(rootAddr)
	if err != nil {
		return nil, fmt.Errorf("root group: %w", err)
	}
	if root.GetMessage(message.TypeSymbolTable) != nil {
		return nil, fmt.Errorf("%w: symbol table groups", ErrUnsupported)
	}

	links := root.Links()
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].TrackOrder && links[j].TrackOrder {
			return links[i].CreationOrder < links[j].CreationOrder
		}
		return links[i].Name < links[j].Name
	})

	f := &File{}
	byAddr := make(map[uint64]string)
	dimLists := make(map[*Variable]*message.Attribute)
	var scales []*Variable
	for _, link := range links {
		if !link.Hard {
			continue
		}
		hdr, err := d.header(link.Address)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", link.Name, err)
		}
		if hdr.GetMessage(message.TypeLinkInfo) != nil || hdr.Datatype() == nil {
			return nil, fmt.Errorf("%w: %s: nested groups", ErrUnsupported, link.Name)
		}
		v, scaleName, dimList, err := d.variable(link.Name, link.Address, hdr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", link.Name, err)
		}
		if scaleName != "" {
			byAddr[link.Address] = link.Name
			scales = append(scales, v)
		}
		if strings.HasPrefix(scaleName, dimensionOnlyPrefix) {
			continue
		}
		if dimList != nil {
			dimLists[v] = dimList
		}
		f.vars = append(f.vars, v)
	}

	sort.SliceStable(scales, func(i, j int) bool { return scales[i].dimID < scales[j].dimID })
	for _, s := range scales {
		if len(s.Shape) != 1 {
			return nil, fmt.Errorf("%w: dimension scale %s has rank %d", ErrUnsupported, byAddr[s.addr], len(s.Shape))
		}
		f.dims = append(f.dims, dataset.Dimension{Name: byAddr[s.addr], Len: s.Shape[0]})
	}

	for _, v := range f.vars {
		if v.Coordinate {
			v.Dims = []string{v.Name}
			continue
		}
		if len(v.Shape) == 0 {
			continue
		}
		list, ok := dimLists[v]
		if !ok {
			return nil, fmt.Errorf("%w: %s: dimensions without DIMENSION_LIST", ErrUnsupported, v.Name)
		}
		addrs, err := d.dimensionList(list)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		for _, addr := range addrs {
			name, ok := byAddr[addr]
			if !ok {
				return nil, fmt.Errorf("%s: DIMENSION_LIST points at 0x%x, not a dimension scale", v.Name, addr)
			}
			v.Dims = append(v.Dims, name)
		}
		if len(v.Dims) != len(v.Shape) {
			return nil, fmt.Errorf("%s: %d dimensions for rank %d", v.Name, len(v.Dims), len(v.Shape))
		}
	}

	f.attrs, _, err = decodeAttrs(root.Attributes())
	if err != nil {
		return nil, fmt.Errorf("global attributes: %w", err)
	}
	return f, nil
}

// internalAttrs holds the netCDF-internal attributes of one object.
type internalAttrs struct {
	fill      any
	isScale   bool
	scaleName string
	dimID     int
	dimList   *message.Attribute
}

// decodeAttrs splits attributes into the visible store and the internal
// ones the netCDF-4 profile uses.
func decodeAttrs(msgs []*message.Attribute) (*dataset.AttributeStore, internalAttrs, error) {
	store := dataset.NewAttributeStore()
	in := internalAttrs{dimID: math.MaxInt}
	for _, a := range msgs {
		switch a.Name {
		case attrDimensionList:
			in.dimList = a
			continue
		case attrReferenceList, attrCoordinates, attrProperties, attrStrict, attrIsNetcdf4:
			continue
		}
		value, err := dtype.DecodeAttribute(a)
		if err != nil {
			return nil, in, fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		switch a.Name {
		case AttrFillValue:
			in.fill = value
		case attrClass:
			in.isScale = value == dimensionScale
		case attrName:
			in.scaleName, _ = value.(string)
		case attrDimID:
			if id, ok := value.(int32); ok {
				in.dimID = int(id)
			}
		default:
			if err := store.Set(a.Name, value); err != nil {
				return nil, in, err
			}
		}
	}
	return store, in, nil
}

func (d *decoder) variable(name string, addr uint64, hdr *object.Header) (*Variable, string, *message.Attribute, error) {
	kind, err := dtype.KindOf(hdr.Datatype())
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	space := hdr.Dataspace()
	if space == nil {
		return nil, "", nil, fmt.Errorf("%w: no dataspace", ErrUnsupported)
	}
	shape := make([]int, len(space.Dimensions))
	for i, n := range space.Dimensions {
		if n > math.MaxInt32 {
			return nil, "", nil, fmt.Errorf("%w: %s: dimension length %d", ErrUnsupported, name, n)
		}
		shape[i] = int(n)
	}
	if _, ok := byteSize(shape, kind.Size()); !ok {
		return nil, "", nil, fmt.Errorf("%w: %s: shape %v too large", ErrUnsupported, name, shape)
	}

	attrs, in, err := decodeAttrs(hdr.Attributes())
	if err != nil {
		return nil, "", nil, err
	}
	v := &Variable{
		Name:       name,
		Kind:       kind,
		Shape:      shape,
		Attrs:      attrs,
		Fill:       in.fill,
		Coordinate: in.isScale && in.scaleName == name && len(shape) == 1,
		dimID:      in.dimID,
		addr:       addr,
	}
	if err := d.readValues(v, hdr); err != nil {
		return nil, "", nil, err
	}

	scaleName := ""
	if in.isScale {
		scaleName = in.scaleName
		if scaleName == "" {
			scaleName = name
		}
	}
	return v, scaleName, in.dimList, nil
}

func (d *decoder) readValues(v *Variable, hdr *object.Header) error {
	want, ok := byteSize(v.Shape, v.Kind.Size())
	if !ok {
		return fmt.Errorf("%w: %s: shape %v too large", ErrUnsupported, v.Name, v.Shape)
	}

	fp := hdr.FilterPipeline()
	l, err := layout.New(layout.Storage{
		Layout:   hdr.DataLayout(),
		Filters:  fp,
		Fill:     hdr.FillValue(),
		ElemSize: v.Kind.Size(),
	}, binary.NewReader(d.ra, d.cfg))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	raw, err := l.Read(want)
	if err != nil {
		return err
	}
	if l.Class() == message.LayoutChunked && fp != nil {
		v.Compressed = fp.Has(message.FilterDeflate)
		for _, f := range fp.Filters {
			switch {
			case f.ID == message.FilterDeflate && len(f.ClientData) > 0:
				v.Level = int(f.ClientData[0])
			case f.ID == message.FilterShuffle:
				v.Shuffle = true
			}
		}
	}
	if len(raw) < want {
		return fmt.Errorf("data holds %d bytes, want %d", len(raw), want)
	}

	values, err := dtype.DecodeArray(v.Kind, raw, v.Shape)
	if err != nil {
		return err
	}
	if v.Fill != nil {
		markFill(values, raw, v.Kind, v.Fill)
	}
	v.Values = values
	return nil
}

// byteSize returns the byte size of an array of shape, or false when it
// does not fit in an int.
func byteSize(shape []int, size int) (int, bool) {
	n := size
	for _, d := range shape {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// markFill marks every cell whose stored bytes equal the fill value as
// missing.
func markFill(a *dataset.Array, raw []byte, kind dataset.Kind, fill any) {
	want, err := dtype.Exact(kind, fill)
	if err != nil {
		return
	}
	size := kind.Size()
	var missing []int
	for i := 0; i < a.Len(); i++ {
		if bytes.Equal(raw[i*size:(i+1)*size], want) {
			missing = append(missing, i)
		}
	}
	a.SetMissing(missing...)
}

// dimensionList resolves DIMENSION_LIST to the header address of each
// axis's dimension scale.
func (d *decoder) dimensionList(a *message.Attribute) ([]uint64, error) {
	dt := a.Datatype
	if dt == nil || dt.Class != message.ClassVarLen || a.Dataspace == nil {
		return nil, fmt.Errorf("%w: DIMENSION_LIST type", ErrUnsupported)
	}
	n := int(a.Dataspace.NumElements())
	r := binary.NewBytesReader(a.Data, d.cfg)
	addrs := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		count := r.Uint32()
		id := heap.DecodeID(r)
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("DIMENSION_LIST: %w", err)
		}
		if count != 1 {
			return nil, fmt.Errorf("%w: axis %d has %d dimension scales", ErrUnsupported, i, count)
		}
		h, ok := d.heaps[id.Collection]
		if !ok {
			var err error
			if h, err = heap.Read(d.ra, id.Collection, d.cfg); err != nil {
				return nil, err
			}
			d.heaps[id.Collection] = h
		}
		obj, err := h.Object(id.Index)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, binary.NewBytesReader(obj, d.cfg).Offset())
	}
	return addrs, nil
}

// Dimensions returns the dimensions in netCDF dimension id order.
func (f *File) Dimensions() []dataset.Dimension {
	return append([]dataset.Dimension(nil), f.dims...)
}

// Variables returns the variables in definition order.
func (f *File) Variables() []*Variable {
	return append([]*Variable(nil), f.vars...)
}

// Variable returns the named variable.
func (f *File) Variable(name string) (*Variable, bool) {
	for _, v := range f.vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Attrs returns the global attributes.
func (f *File) Attrs() *dataset.AttributeStore { return f.attrs }

// Dataset rebuilds an unfinalized dataset from the file. Coordinates are
// attached in dimension id order so dimension ids are preserved.
func (f *File) Dataset(opts ...dataset.Option) (*dataset.Dataset, error) {
	ds := dataset.New(opts...)
	if err := ds.Attrs().SetAll(f.attrs.All()...); err != nil {
		return nil, err
	}
	var coords, data []*Variable
	for _, v := range f.vars {
		if v.Coordinate {
			coords = append(coords, v)
		} else {
			data = append(data, v)
		}
	}
	sort.SliceStable(coords, func(i, j int) bool { return coords[i].dimID < coords[j].dimID })
	for _, v := range coords {
		if _, err := ds.AttachCoordinate(v.Name, v.Values.Clone(), v.Attrs.All()...); err != nil {
			return nil, err
		}
	}
	for _, v := range data {
		if _, err := ds.AttachData(v.Name, v.Dims, v.Values.Clone(), v.Attrs.All()...); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Resolver returns a resolver for ds configured with the encodings stored
// in the file, for every variable ds shares with it.
func (f *File) Resolver(ds *dataset.Dataset) (*Resolver, error) {
	r := NewResolver(ds)
	for _, v := range f.vars {
		if _, ok := ds.Variable(v.Name); !ok {
			continue
		}
		if err := r.Configure(v.Name, v.Encoding()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

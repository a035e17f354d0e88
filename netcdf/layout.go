package netcdf

import (
	"fmt"

	"github.com/robert-malhotra/cfnc/dataset"
	"github.com/robert-malhotra/cfnc/internal/alloc"
	"github.com/robert-malhotra/cfnc/internal/binary"
	"github.com/robert-malhotra/cfnc/internal/heap"
	"github.com/robert-malhotra/cfnc/internal/message"
	"github.com/robert-malhotra/cfnc/internal/object"
	"github.com/robert-malhotra/cfnc/internal/superblock"
)

// assemble places every block and returns the file image.
//
//	superblock | raw data | global heap | variable headers | root group
//
// Header sizes do not depend on the addresses they contain, so each header
// is encoded once with placeholder addresses to size it and again once all
// addresses are known.
func assemble(plans []*varPlan, globals []*message.Attribute, ds *dataset.Dataset) ([]byte, error) {
	cfg := binary.DefaultConfig()
	a := alloc.New(superblock.Size)

	for _, p := range plans {
		p.dataAddr = binary.Undefined
		if len(p.stored) > 0 {
			p.dataAddr = a.Alloc(uint64(len(p.stored)), "raw:"+p.v.Name())
		}
	}

	coords := make(map[string]*varPlan)
	for _, p := range plans {
		if p.v.IsCoordinate() {
			coords[p.v.Name()] = p
		}
	}
	sizing := heap.NewCollection(cfg)
	for _, p := range plans {
		if p.v.IsCoordinate() {
			continue
		}
		for axis, dim := range p.v.Dims() {
			c := coords[dim]
			c.refs = append(c.refs, reference{to: p, axis: axis})
			idx, err := sizing.Add(make([]byte, cfg.OffsetSize))
			if err != nil {
				return nil, fmt.Errorf("%s: dimension references: %w", p.v.Name(), err)
			}
			p.heapIdx = append(p.heapIdx, idx)
		}
	}
	var heapAddr uint64
	if sizing.Len() > 0 {
		heapAddr = a.Alloc(sizing.Size(), "gcol")
	}

	sizes := make([]int, len(plans))
	for i, p := range plans {
		hdr, err := variableHeader(p, heapAddr, ds, cfg)
		if err != nil {
			return nil, err
		}
		sizes[i] = len(hdr)
	}
	for i, p := range plans {
		p.hdrAddr = a.Alloc(uint64(sizes[i]), "ohdr:"+p.v.Name())
	}

	image := &binary.Buffer{}
	w := binary.NewWriter(image, cfg)
	refs := heap.NewCollection(cfg)
	for i, p := range plans {
		hdr, err := variableHeader(p, heapAddr, ds, cfg)
		if err != nil {
			return nil, err
		}
		if len(hdr) != sizes[i] {
			return nil, fmt.Errorf("%s: header is %d bytes, sized as %d", p.v.Name(), len(hdr), sizes[i])
		}
		w.At(int64(p.hdrAddr)).Bytes(hdr)
		if len(p.stored) > 0 {
			w.At(int64(p.dataAddr)).Bytes(p.stored)
		}
		if !p.v.IsCoordinate() {
			for _, dim := range p.v.Dims() {
				addr := make([]byte, cfg.OffsetSize)
				cfg.ByteOrder.PutUint64(addr, coords[dim].hdrAddr)
				if _, err := refs.Add(addr); err != nil {
					return nil, err
				}
			}
		}
	}
	if refs.Len() > 0 {
		w.At(int64(heapAddr)).Bytes(refs.Encode())
	}

	root, err := rootHeader(plans, globals, cfg)
	if err != nil {
		return nil, err
	}
	rootAddr := a.Alloc(uint64(len(root)), "ohdr:/")
	w.At(int64(rootAddr)).Bytes(root)
	w.At(0).Bytes(superblock.New(rootAddr, a.EOF()).Encode())

	if err := w.Err(); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("file layout: %w", err)
	}
	return image.Bytes(), nil
}

// variableHeader encodes the object header of one variable.
func variableHeader(p *varPlan, heapAddr uint64, ds *dataset.Dataset, cfg binary.Config) ([]byte, error) {
	space := message.NewSimpleDataspace(p.dims...)
	if len(p.dims) == 0 {
		space = message.NewScalarDataspace()
	}
	fill := &message.FillValue{
		AllocTime: message.AllocLate,
		WriteTime: message.FillIfSet,
		Defined:   p.fill != nil,
		Value:     p.fill,
	}
	msgs := []message.Encoder{space, p.dt, fill}
	if p.pipeline != nil {
		fill.AllocTime = message.AllocIncremental
		msgs = append(msgs,
			message.NewSingleChunkLayout(p.dims, uint32(p.enc.Type.Size()), p.dataAddr, true, uint64(len(p.stored))),
			p.pipeline,
		)
	} else {
		msgs = append(msgs, message.NewContiguousLayout(p.dataAddr, uint64(len(p.stored))))
	}

	attrs := append([]*message.Attribute(nil), p.attrs...)
	if p.v.IsCoordinate() {
		attrs = append(attrs, scaleAttributes(p, ds.DimensionIndex(p.v.Name()))...)
	} else if len(p.heapIdx) > 0 {
		attrs = append(attrs, dimensionList(p.heapIdx, heapAddr, cfg))
	}
	msgs = append(msgs, &message.AttributeInfo{TrackOrder: true, MaxCreationIndex: uint16(len(attrs))})
	for _, m := range attrs {
		msgs = append(msgs, m)
	}
	return object.Encode(msgs, true, cfg)
}

// scaleAttributes marks a coordinate as the dimension scale of dimension
// dimID and lists the data variable axes attached to it.
func scaleAttributes(p *varPlan, dimID int) []*message.Attribute {
	name := p.v.Name()
	attrs := []*message.Attribute{
		stringAttribute(attrClass, dimensionScale),
		stringAttribute(attrName, name),
		{
			Name:      attrDimID,
			Datatype:  message.NewFixedPoint(4, true),
			Dataspace: message.NewScalarDataspace(),
			Data:      le32(uint32(dimID)),
		},
	}
	if len(p.refs) == 0 {
		return attrs
	}

	const entrySize = 12
	dt := message.NewCompound(entrySize,
		message.CompoundMember{Name: "dataset", Offset: 0, Type: message.NewObjectReference(8)},
		message.CompoundMember{Name: "dimension", Offset: 8, Type: message.NewFixedPoint(4, true)},
	)
	data := make([]byte, 0, entrySize*len(p.refs))
	for _, ref := range p.refs {
		data = append(data, le64(ref.to.hdrAddr)...)
		data = append(data, le32(uint32(ref.axis))...)
	}
	return append(attrs, &message.Attribute{
		Name:      attrReferenceList,
		Datatype:  dt,
		Dataspace: message.NewSimpleDataspace(uint64(len(p.refs))),
		Data:      data,
	})
}

// dimensionList builds DIMENSION_LIST: one variable-length sequence per
// axis, each holding a single object reference stored in the global heap.
func dimensionList(idx []uint32, heapAddr uint64, cfg binary.Config) *message.Attribute {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	for _, i := range idx {
		w.Uint32(1)
		heap.EncodeID(w, heap.ID{Collection: heapAddr, Index: i})
	}
	return &message.Attribute{
		Name:      attrDimensionList,
		Datatype:  message.NewVarLenSequence(message.NewObjectReference(cfg.OffsetSize), cfg.OffsetSize),
		Dataspace: message.NewSimpleDataspace(uint64(len(idx))),
		Data:      buf.Bytes(),
	}
}

// rootHeader encodes the root group: compact links to every variable in
// definition order, then the global attributes.
func rootHeader(plans []*varPlan, globals []*message.Attribute, cfg binary.Config) ([]byte, error) {
	msgs := []message.Encoder{
		&message.LinkInfo{TrackOrder: true, MaxCreationIndex: uint64(len(plans))},
		&message.GroupInfo{},
		&message.AttributeInfo{TrackOrder: true, MaxCreationIndex: uint16(len(globals))},
	}
	for i, p := range plans {
		link := message.NewHardLink(p.v.Name(), p.hdrAddr)
		link.TrackOrder = true
		link.CreationOrder = uint64(i)
		msgs = append(msgs, link)
	}
	for _, m := range globals {
		msgs = append(msgs, m)
	}
	return object.Encode(msgs, true, cfg)
}

func stringAttribute(name, value string) *message.Attribute {
	return &message.Attribute{
		Name:      name,
		Datatype:  message.NewFixedString(len(value)+1, false),
		Dataspace: message.NewScalarDataspace(),
		Data:      append([]byte(value), 0),
	}
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

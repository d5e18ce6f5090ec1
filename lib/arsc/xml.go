// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"fmt"

	"github.com/arscrec/arscrec/lib/binstruct"
)

const xmlNodeHeaderSize = 0x10

// NoString is the string-pool-index sentinel meaning "no string", used
// throughout the XML node chunks (e.g. an element with no namespace,
// or a namespace declaration with no comment).
const NoString = uint32(0xFFFFFFFF)

// xmlNodeHeader is the line-number/comment pair shared by every XML
// node chunk, following the common 8-byte chunk header.
type xmlNodeHeader struct {
	LineNumber uint32
	Comment    uint32 // string pool index, or NoString
}

func parseXMLNodeHeader(full []byte, chunkOffset int64, kind Kind) (xmlNodeHeader, error) {
	if len(full) < xmlNodeHeaderSize {
		return xmlNodeHeader{}, &MalformedInputError{Offset: chunkOffset, Kind: kind, Msg: "truncated XML node header"}
	}
	return xmlNodeHeader{
		LineNumber: binary.LittleEndian.Uint32(full[0x08:0x0C]),
		Comment:    binary.LittleEndian.Uint32(full[0x0C:0x10]),
	}, nil
}

func marshalXMLNodeHeader(kind Kind, h xmlNodeHeader, totalSize int) []byte {
	out := make([]byte, xmlNodeHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(kind))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(xmlNodeHeaderSize))
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(totalSize))
	binary.LittleEndian.PutUint32(out[0x08:0x0C], h.LineNumber)
	binary.LittleEndian.PutUint32(out[0x0C:0x10], h.Comment)
	return out
}

// XMLChunk is an XML chunk: a string pool, an optional resource-id map,
// and a stream of namespace/element/cdata node chunks forming a
// document tree, kept in original parse order for exact round trip.
type XMLChunk struct {
	Children []*Chunk
}

func (c *XMLChunk) Kind() Kind { return KindXML }

func parseXMLTree(full []byte, chunkOffset int64) (*XMLChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXML, Msg: err.Error()}
	}
	children, err := ParseChunkSequence(full[meta.HeaderSize:], chunkOffset+int64(meta.HeaderSize))
	if err != nil {
		return nil, err
	}
	for _, ch := range children {
		k := ch.Body.Kind()
		if k != KindStringPool && k != KindXMLResourceMap && !k.isXMLNode() {
			return nil, &UnknownKindInsideKnownContainerError{Offset: ch.Offset, Container: KindXML, Child: k}
		}
	}
	return &XMLChunk{Children: children}, nil
}

func (c *XMLChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	body, err := MarshalChunkSequence(c.Children, opts)
	if err != nil {
		return nil, err
	}
	out := make([]byte, metaHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindXML))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(metaHeaderSize))
	out = append(out, body...)
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

// StringPool returns this tree's string pool, if any.
func (c *XMLChunk) StringPool() *StringPoolChunk {
	for _, ch := range c.Children {
		if sp, ok := ch.Body.(*StringPoolChunk); ok {
			return sp
		}
	}
	return nil
}

// ResourceMap returns this tree's attribute-resource-id map, if any.
func (c *XMLChunk) ResourceMap() *XMLResourceMapChunk {
	for _, ch := range c.Children {
		if rm, ok := ch.Body.(*XMLResourceMapChunk); ok {
			return rm
		}
	}
	return nil
}

// XMLNamespaceChunk is an XML_START_NAMESPACE or XML_END_NAMESPACE
// node: a prefix/URI binding in scope for the following siblings.
type XMLNamespaceChunk struct {
	xmlNodeHeader
	End    bool
	Prefix uint32 // string pool index, or NoString
	URI    uint32 // string pool index, or NoString
}

func (c *XMLNamespaceChunk) Kind() Kind {
	if c.End {
		return KindXMLNSEnd
	}
	return KindXMLNSStart
}

func parseXMLNamespace(full []byte, chunkOffset int64, end bool) (*XMLNamespaceChunk, error) {
	kind := KindXMLNSStart
	if end {
		kind = KindXMLNSEnd
	}
	hdr, err := parseXMLNodeHeader(full, chunkOffset, kind)
	if err != nil {
		return nil, err
	}
	if len(full) < xmlNodeHeaderSize+8 {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: kind, Msg: "truncated XML namespace node"}
	}
	return &XMLNamespaceChunk{
		xmlNodeHeader: hdr,
		End:           end,
		Prefix:        binary.LittleEndian.Uint32(full[0x10:0x14]),
		URI:           binary.LittleEndian.Uint32(full[0x14:0x18]),
	}, nil
}

func (c *XMLNamespaceChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := marshalXMLNodeHeader(c.Kind(), c.xmlNodeHeader, xmlNodeHeaderSize+8)
	var ext [8]byte
	binary.LittleEndian.PutUint32(ext[0:4], c.Prefix)
	binary.LittleEndian.PutUint32(ext[4:8], c.URI)
	return append(out, ext[:]...), nil
}

// Attribute is one attribute of an XML_START_ELEMENT node.
type Attribute struct {
	Namespace  uint32 // string pool index, or NoString
	Name       uint32 // string pool index
	RawValue   uint32 // string pool index, or NoString
	TypedValue ResourceValue
}

const attributeSize = 20

// XMLElementStartChunk is an XML_START_ELEMENT node: a tag name, its
// namespace, and its attribute list.
type XMLElementStartChunk struct {
	xmlNodeHeader
	Namespace    uint32 // string pool index, or NoString
	Name         uint32 // string pool index
	IDIndex      uint16 // 1-based index into Attributes, or 0
	ClassIndex   uint16
	StyleIndex   uint16
	Attributes   []Attribute
}

func (c *XMLElementStartChunk) Kind() Kind { return KindXMLElemStart }

func parseXMLElementStart(full []byte, chunkOffset int64) (*XMLElementStartChunk, error) {
	hdr, err := parseXMLNodeHeader(full, chunkOffset, KindXMLElemStart)
	if err != nil {
		return nil, err
	}
	const extFixed = 0x14 // ns, name, attributeStart, attributeSize, attributeCount, idIndex, classIndex, styleIndex
	if len(full) < xmlNodeHeaderSize+extFixed {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLElemStart, Msg: "truncated XML element-start node"}
	}
	base := xmlNodeHeaderSize
	ns := binary.LittleEndian.Uint32(full[base : base+4])
	name := binary.LittleEndian.Uint32(full[base+4 : base+8])
	attrStart := binary.LittleEndian.Uint16(full[base+8 : base+10])
	attrEntrySize := binary.LittleEndian.Uint16(full[base+10 : base+12])
	if attrEntrySize != attributeSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLElemStart, Msg: fmt.Sprintf("attribute entry size %d != %d", attrEntrySize, attributeSize)}
	}
	attrCount := binary.LittleEndian.Uint16(full[base+12 : base+14])
	idIdx := binary.LittleEndian.Uint16(full[base+14 : base+16])
	classIdx := binary.LittleEndian.Uint16(full[base+16 : base+18])
	styleIdx := binary.LittleEndian.Uint16(full[base+18 : base+20])

	attrs := make([]Attribute, attrCount)
	p := base + int(attrStart)
	for i := range attrs {
		if p+int(attrEntrySize) > len(full) {
			return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLElemStart, Msg: "attribute array overruns chunk"}
		}
		var v ResourceValue
		if _, err := v.UnmarshalBinary(full[p+12:]); err != nil {
			return nil, err
		}
		attrs[i] = Attribute{
			Namespace:  binary.LittleEndian.Uint32(full[p : p+4]),
			Name:       binary.LittleEndian.Uint32(full[p+4 : p+8]),
			RawValue:   binary.LittleEndian.Uint32(full[p+8 : p+12]),
			TypedValue: v,
		}
		p += int(attrEntrySize)
	}

	return &XMLElementStartChunk{
		xmlNodeHeader: hdr,
		Namespace:     ns,
		Name:          name,
		IDIndex:       idIdx,
		ClassIndex:    classIdx,
		StyleIndex:    styleIdx,
		Attributes:    attrs,
	}, nil
}

func (c *XMLElementStartChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	const extFixed = 0x14
	total := xmlNodeHeaderSize + extFixed + len(c.Attributes)*attributeSize
	out := marshalXMLNodeHeader(KindXMLElemStart, c.xmlNodeHeader, total)

	var ext [extFixed]byte
	binary.LittleEndian.PutUint32(ext[0:4], c.Namespace)
	binary.LittleEndian.PutUint32(ext[4:8], c.Name)
	binary.LittleEndian.PutUint16(ext[8:10], uint16(extFixed))
	binary.LittleEndian.PutUint16(ext[10:12], uint16(attributeSize))
	binary.LittleEndian.PutUint16(ext[12:14], uint16(len(c.Attributes)))
	binary.LittleEndian.PutUint16(ext[14:16], c.IDIndex)
	binary.LittleEndian.PutUint16(ext[16:18], c.ClassIndex)
	binary.LittleEndian.PutUint16(ext[18:20], c.StyleIndex)
	out = append(out, ext[:]...)

	for _, a := range c.Attributes {
		var buf [attributeSize]byte
		binary.LittleEndian.PutUint32(buf[0:4], a.Namespace)
		binary.LittleEndian.PutUint32(buf[4:8], a.Name)
		binary.LittleEndian.PutUint32(buf[8:12], a.RawValue)
		vb, err := a.TypedValue.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(buf[12:20], vb)
		out = append(out, buf[:]...)
	}
	return out, nil
}

// XMLElementEndChunk is an XML_END_ELEMENT node closing the most
// recently opened element.
type XMLElementEndChunk struct {
	xmlNodeHeader
	Namespace uint32 // string pool index, or NoString
	Name      uint32 // string pool index
}

func (c *XMLElementEndChunk) Kind() Kind { return KindXMLElemEnd }

func parseXMLElementEnd(full []byte, chunkOffset int64) (*XMLElementEndChunk, error) {
	hdr, err := parseXMLNodeHeader(full, chunkOffset, KindXMLElemEnd)
	if err != nil {
		return nil, err
	}
	if len(full) < xmlNodeHeaderSize+8 {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLElemEnd, Msg: "truncated XML element-end node"}
	}
	return &XMLElementEndChunk{
		xmlNodeHeader: hdr,
		Namespace:     binary.LittleEndian.Uint32(full[0x10:0x14]),
		Name:          binary.LittleEndian.Uint32(full[0x14:0x18]),
	}, nil
}

func (c *XMLElementEndChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := marshalXMLNodeHeader(KindXMLElemEnd, c.xmlNodeHeader, xmlNodeHeaderSize+8)
	var ext [8]byte
	binary.LittleEndian.PutUint32(ext[0:4], c.Namespace)
	binary.LittleEndian.PutUint32(ext[4:8], c.Name)
	return append(out, ext[:]...), nil
}

// XMLCDataChunk is an XML_CDATA node: raw character data between tags.
type XMLCDataChunk struct {
	xmlNodeHeader
	Data       uint32 // string pool index
	TypedValue ResourceValue
}

func (c *XMLCDataChunk) Kind() Kind { return KindXMLCData }

func parseXMLCData(full []byte, chunkOffset int64) (*XMLCDataChunk, error) {
	hdr, err := parseXMLNodeHeader(full, chunkOffset, KindXMLCData)
	if err != nil {
		return nil, err
	}
	if len(full) < xmlNodeHeaderSize+4+ValueSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLCData, Msg: "truncated XML cdata node"}
	}
	var v ResourceValue
	if _, err := v.UnmarshalBinary(full[xmlNodeHeaderSize+4:]); err != nil {
		return nil, err
	}
	return &XMLCDataChunk{
		xmlNodeHeader: hdr,
		Data:          binary.LittleEndian.Uint32(full[0x10:0x14]),
		TypedValue:    v,
	}, nil
}

func (c *XMLCDataChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := marshalXMLNodeHeader(KindXMLCData, c.xmlNodeHeader, xmlNodeHeaderSize+4+ValueSize)
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], c.Data)
	out = append(out, head[:]...)
	vb, err := c.TypedValue.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, vb...), nil
}

// XMLResourceMapChunk maps each attribute/element name string (by
// pool index, implicitly 0..len(IDs)-1) to the resource id it resolves
// to, so a consumer can resolve "android:text" without a live package
// database.
type XMLResourceMapChunk struct {
	IDs []ResourceID
}

func (c *XMLResourceMapChunk) Kind() Kind { return KindXMLResourceMap }

func parseXMLResourceMap(full []byte, chunkOffset int64) (*XMLResourceMapChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLResourceMap, Msg: err.Error()}
	}
	body := full[meta.HeaderSize:]
	if len(body)%4 != 0 {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindXMLResourceMap, Msg: "resource map body is not a multiple of 4 bytes"}
	}
	ids := make([]ResourceID, len(body)/4)
	for i := range ids {
		ids[i] = ResourceID(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return &XMLResourceMapChunk{IDs: ids}, nil
}

func (c *XMLResourceMapChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := make([]byte, metaHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindXMLResourceMap))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(metaHeaderSize))
	for _, id := range c.IDs {
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], uint32(id))
		out = append(out, w[:]...)
	}
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

// DeleteStrings removes the given indices from this document's string
// pool and cascades the resulting index shift into every string-pool
// reference the tree holds: comments, namespace prefixes/URIs,
// element/attribute names, and string-typed attribute/cdata values.
func (c *XMLChunk) DeleteStrings(idxs []uint32) error {
	pool := c.StringPool()
	if pool == nil {
		return &InvariantViolationError{Msg: "XML tree has no string pool"}
	}
	remap, err := pool.DeleteStrings(idxs)
	if err != nil {
		return err
	}
	c.remapReferences(remap)
	return nil
}

// RemapResourceReferences rewrites every attribute and cdata typed
// value that is a REFERENCE (or DYNAMIC_REFERENCE) and whose Data names
// a resource id present in m, substituting the mapped id. Per §4.8,
// attributes are structurally immutable: this replaces the whole
// Attribute tuple at the same index rather than mutating a shared
// value, even though in this package's value-type representation that
// is observably identical to an in-place field update. It returns the
// number of values it rewrote.
func (c *XMLChunk) RemapResourceReferences(m map[ResourceID]ResourceID) int {
	n := 0
	remapValue := func(v *ResourceValue) {
		if v.Type != ValueReference && v.Type != ValueDynamicReference {
			return
		}
		if to, ok := m[ResourceID(v.Data)]; ok {
			*v = ResourceValue{Size: v.Size, Reserved: v.Reserved, Type: v.Type, Data: uint32(to)}
			n++
		}
	}
	for _, ch := range c.Children {
		switch b := ch.Body.(type) {
		case *XMLElementStartChunk:
			for i := range b.Attributes {
				old := b.Attributes[i]
				remapValue(&old.TypedValue)
				b.Attributes[i] = old
			}
		case *XMLCDataChunk:
			remapValue(&b.TypedValue)
		}
	}
	return n
}

// remapReferences rewrites every string-pool index this tree holds
// (comments, namespace prefixes/URIs, element/attribute names,
// raw/typed string values) through remap, dropping indices that map to
// -1 by replacing them with NoString — used after a string-pool delete
// cascades index shifts through the whole document.
func (c *XMLChunk) remapReferences(remap []int) {
	apply := func(idx uint32) uint32 {
		if idx == NoString {
			return NoString
		}
		if int(idx) >= len(remap) || remap[idx] < 0 {
			return NoString
		}
		return uint32(remap[idx])
	}
	applyValue := func(v *ResourceValue) {
		if v.Type == ValueString {
			v.Data = apply(v.Data)
		}
	}

	for _, ch := range c.Children {
		switch b := ch.Body.(type) {
		case *XMLNamespaceChunk:
			b.Comment = apply(b.Comment)
			b.Prefix = apply(b.Prefix)
			b.URI = apply(b.URI)
		case *XMLElementStartChunk:
			b.Comment = apply(b.Comment)
			b.Namespace = apply(b.Namespace)
			b.Name = apply(b.Name)
			for i := range b.Attributes {
				a := &b.Attributes[i]
				a.Namespace = apply(a.Namespace)
				a.Name = apply(a.Name)
				a.RawValue = apply(a.RawValue)
				applyValue(&a.TypedValue)
			}
		case *XMLElementEndChunk:
			b.Comment = apply(b.Comment)
			b.Namespace = apply(b.Namespace)
			b.Name = apply(b.Name)
		case *XMLCDataChunk:
			b.Comment = apply(b.Comment)
			b.Data = apply(b.Data)
			applyValue(&b.TypedValue)
		}
	}
}

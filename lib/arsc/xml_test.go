// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleXML() *XMLChunk {
	pool := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{
		"android", "http://schemas.android.com/apk/res/android", "manifest", "package",
	}}
	ns := &XMLNamespaceChunk{Prefix: 0, URI: 1}
	nsEnd := &XMLNamespaceChunk{End: true, Prefix: 0, URI: 1}
	elemStart := &XMLElementStartChunk{
		Namespace: NoString,
		Name:      2,
		Attributes: []Attribute{
			{Namespace: NoString, Name: 3, RawValue: NoString, TypedValue: ResourceValue{Size: ValueSize, Type: ValueString, Data: 0}},
		},
	}
	elemEnd := &XMLElementEndChunk{Namespace: NoString, Name: 2}

	return &XMLChunk{Children: []*Chunk{
		{Body: pool},
		{Body: ns},
		{Body: elemStart},
		{Body: elemEnd},
		{Body: nsEnd},
	}}
}

func TestXMLRoundTrip(t *testing.T) {
	tree := buildSampleXML()
	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)

	got, err := parseXMLTree(raw, 0)
	require.NoError(t, err)
	require.Len(t, got.Children, 5)

	ns, ok := got.Children[1].Body.(*XMLNamespaceChunk)
	require.True(t, ok)
	assert.False(t, ns.End)
	assert.Equal(t, uint32(1), ns.URI)

	elem, ok := got.Children[2].Body.(*XMLElementStartChunk)
	require.True(t, ok)
	assert.Equal(t, uint32(2), elem.Name)
	require.Len(t, elem.Attributes, 1)
	assert.Equal(t, uint32(3), elem.Attributes[0].Name)

	assert.Equal(t, []string{"android", "http://schemas.android.com/apk/res/android", "manifest", "package"}, got.StringPool().Strings)
}

func TestXMLResourceMap(t *testing.T) {
	tree := buildSampleXML()
	tree.Children = append(tree.Children, &Chunk{Body: &XMLResourceMapChunk{IDs: []ResourceID{0x01010003}}})

	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)
	got, err := parseXMLTree(raw, 0)
	require.NoError(t, err)

	rm := got.ResourceMap()
	require.NotNil(t, rm)
	assert.Equal(t, []ResourceID{0x01010003}, rm.IDs)
}

func TestXMLRemapReferences(t *testing.T) {
	tree := buildSampleXML()
	// simulate deleting string index 1 ("http://...android")
	remap := []int{0, -1, 1, 2}
	tree.remapReferences(remap)

	ns := tree.Children[1].Body.(*XMLNamespaceChunk)
	assert.Equal(t, NoString, ns.URI)

	elem := tree.Children[2].Body.(*XMLElementStartChunk)
	assert.Equal(t, uint32(1), elem.Name)
	assert.Equal(t, uint32(2), elem.Attributes[0].Name)
}

func TestXMLDeleteStringsCascades(t *testing.T) {
	tree := buildSampleXML()
	require.NoError(t, tree.DeleteStrings([]uint32{1}))

	ns := tree.Children[1].Body.(*XMLNamespaceChunk)
	assert.Equal(t, NoString, ns.URI)
	assert.Equal(t, []string{"android", "manifest", "package"}, tree.StringPool().Strings)
}

func TestXMLRemapResourceReferences(t *testing.T) {
	tree := buildSampleXML()
	elem := tree.Children[2].Body.(*XMLElementStartChunk)
	oldID, err := NewResourceID(0x01, 0x01, 0x0003)
	require.NoError(t, err)
	elem.Attributes[0].TypedValue = ResourceValue{Size: ValueSize, Type: ValueReference, Data: uint32(oldID)}

	newID, err := NewResourceID(0x01, 0x01, 0x0004)
	require.NoError(t, err)
	n := tree.RemapResourceReferences(map[ResourceID]ResourceID{oldID: newID})
	assert.Equal(t, 1, n)
	assert.Equal(t, uint32(newID), elem.Attributes[0].TypedValue.Data)
}

func TestXMLTreeRejectsUnknownContainedKind(t *testing.T) {
	tree := &XMLChunk{Children: []*Chunk{
		{Body: &StringPoolChunk{Encoding: EncodingUTF8}},
		{Body: &TypeSpecChunk{ID: 1}}, // not a pool, resource map, or XML node
	}}
	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)

	_, err = parseXMLTree(raw, 0)
	require.Error(t, err)
	var kindErr *UnknownKindInsideKnownContainerError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, KindXML, kindErr.Container)
	assert.Equal(t, KindTableTypeSpec, kindErr.Child)
}

func TestElementStartRejectsNonStandardAttributeSize(t *testing.T) {
	tree := buildSampleXML()
	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)

	got, err := parseXMLTree(raw, 0)
	require.NoError(t, err)

	// locate the marshaled element-start chunk's attrEntrySize field
	// (base+10 from the chunk's start, base being the 16-byte XML node
	// header) and corrupt it.
	elemOffset := got.Children[2].Offset
	const base = xmlNodeHeaderSize
	binary.LittleEndian.PutUint16(raw[elemOffset+int64(base)+10:], 99)

	_, err = parseXMLTree(raw, 0)
	require.Error(t, err)
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, KindXMLElemStart, malformed.Kind)
}

func TestCDataRoundTrip(t *testing.T) {
	pool := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"hello world"}}
	cdata := &XMLCDataChunk{Data: 0, TypedValue: ResourceValue{Size: ValueSize, Type: ValueString, Data: 0}}
	tree := &XMLChunk{Children: []*Chunk{{Body: pool}, {Body: cdata}}}

	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)
	got, err := parseXMLTree(raw, 0)
	require.NoError(t, err)

	gotCData, ok := got.Children[1].Body.(*XMLCDataChunk)
	require.True(t, ok)
	assert.Equal(t, uint32(0), gotCData.Data)
}

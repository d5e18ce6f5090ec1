// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleTable() *TableChunk {
	globalPool := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"Hello"}}
	typePool := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"string"}}
	keyPool := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"app_name"}}

	typeChunk := &TypeChunk{
		ID:     1,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{Present: true, Key: 0, Value: ResourceValue{Size: ValueSize, Type: ValueString, Data: 0}},
		},
	}
	typeSpec := &TypeSpecChunk{ID: 1, Masks: []uint32{SpecPublic}}

	pkg := &PackageChunk{
		ID:   0x7f,
		Name: "com.example.app",
		Children: []*Chunk{
			{Body: typePool},
			{Body: keyPool},
			{Body: typeSpec},
			{Body: typeChunk},
		},
	}

	return &TableChunk{
		Children: []*Chunk{
			{Body: globalPool},
			{Body: pkg},
		},
	}
}

func marshalAndReparseTable(t *testing.T, table *TableChunk, opts SerializeOptions) *TableChunk {
	t.Helper()
	raw, err := table.MarshalBody(opts)
	require.NoError(t, err)
	got, err := parseTable(raw, 0)
	require.NoError(t, err)
	return got
}

func TestTableRoundTrip(t *testing.T) {
	table := buildSampleTable()
	got := marshalAndReparseTable(t, table, NoneOptions)

	require.Len(t, got.Packages(), 1)
	pkg := got.Packages()[0]
	assert.Equal(t, "com.example.app", pkg.Name)
	assert.Equal(t, uint32(0x7f), pkg.ID)
	assert.Equal(t, []string{"Hello"}, got.GlobalStringPool().Strings)
	assert.Equal(t, []string{"string"}, pkg.TypeStringPool().Strings)
	assert.Equal(t, []string{"app_name"}, pkg.KeyStringPool().Strings)
}

func TestTableResolve(t *testing.T) {
	table := buildSampleTable()
	id, err := NewResourceID(0x7f, 1, 0)
	require.NoError(t, err)

	pkg, typ, entry, err := table.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", pkg.Name)
	assert.Equal(t, uint8(1), typ.ID)
	assert.True(t, entry.Present)
	assert.Equal(t, ValueString, entry.Value.Type)
}

func TestTableDeleteStringsCascades(t *testing.T) {
	table := buildSampleTable()
	table.GlobalStringPool().AddString("World")

	pkg := table.Packages()[0]
	_, types := pkg.TypesByID(1)
	types[0].Entries[0].Value.Data = 1 // repoint at "World" before freeing "Hello"

	err := table.DeleteStrings([]uint32{0})
	require.NoError(t, err)

	entry := types[0].Entries[0]
	assert.Equal(t, uint32(0), entry.Value.Data)
	assert.Equal(t, []string{"World"}, table.GlobalStringPool().Strings)
}

func TestPackageDeleteKeysCascades(t *testing.T) {
	table := buildSampleTable()
	pkg := table.Packages()[0]
	pkg.KeyStringPool().AddString("other_key")

	_, types := pkg.TypesByID(1)
	types[0].Entries[0].Key = 1 // repoint at "other_key" before freeing "app_name"

	require.NoError(t, pkg.DeleteKeys([]uint32{0}))
	assert.Equal(t, uint32(0), types[0].Entries[0].Key)
	assert.Equal(t, []string{"other_key"}, pkg.KeyStringPool().Strings)
}

func TestPackageDeleteKeysPrunesEmptiedType(t *testing.T) {
	table := buildSampleTable()
	pkg := table.Packages()[0]

	require.NoError(t, pkg.DeleteKeys([]uint32{0})) // "app_name" is the type's only key

	_, types := pkg.TypesByID(1)
	assert.Empty(t, types, "a type chunk whose every entry went null is pruned")
	spec, _ := pkg.TypesByID(1)
	assert.Nil(t, spec, "its type-spec chunk is pruned too, since no type chunk still shares the id")
	assert.NotNil(t, pkg.TypeStringPool())
	assert.NotNil(t, pkg.KeyStringPool())
}

func TestTableRejectsUnknownContainedKind(t *testing.T) {
	table := &TableChunk{
		Children: []*Chunk{
			{Body: &StringPoolChunk{Encoding: EncodingUTF8}},
			{Body: &TypeSpecChunk{ID: 1}}, // not a valid direct child of a table
		},
	}
	raw, err := table.MarshalBody(NoneOptions)
	require.NoError(t, err)

	_, err = parseTable(raw, 0)
	require.Error(t, err)
	var kindErr *UnknownKindInsideKnownContainerError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, KindTable, kindErr.Container)
	assert.Equal(t, KindTableTypeSpec, kindErr.Child)
}

func TestPackageRejectsUnknownContainedKind(t *testing.T) {
	pkg := &PackageChunk{
		ID:   0x7f,
		Name: "com.example.app",
		Children: []*Chunk{
			{Body: &StringPoolChunk{Encoding: EncodingUTF8}},
			{Body: &StringPoolChunk{Encoding: EncodingUTF8}},
			{Body: &TableChunk{}}, // a table can't nest inside a package
		},
	}
	raw, err := pkg.MarshalBody(NoneOptions)
	require.NoError(t, err)

	_, err = parsePackage(raw, 0)
	require.Error(t, err)
	var kindErr *UnknownKindInsideKnownContainerError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, KindTablePackage, kindErr.Container)
	assert.Equal(t, KindTable, kindErr.Child)
}

func TestTypeSpecPublicFlag(t *testing.T) {
	table := buildSampleTable()
	pkg := table.Packages()[0]
	spec, _ := pkg.TypesByID(1)
	assert.True(t, spec.IsPublic(0))
}

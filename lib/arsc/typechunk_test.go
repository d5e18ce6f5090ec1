// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAndParseType(t *testing.T, c *TypeChunk, opts SerializeOptions) *TypeChunk {
	t.Helper()
	raw, err := c.MarshalBody(opts)
	require.NoError(t, err)
	got, err := parseType(raw, 0)
	require.NoError(t, err)
	return got
}

func TestTypeChunkDenseSimpleEntries(t *testing.T) {
	c := &TypeChunk{
		ID:     1,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{Present: true, Key: 0, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 42}},
			{},
			{Present: true, Key: 2, Value: ResourceValue{Size: ValueSize, Type: ValueString, Data: 7}},
		},
	}
	got := buildAndParseType(t, c, NoneOptions)
	require.Len(t, got.Entries, 3)
	assert.True(t, got.Entries[0].Present)
	assert.Equal(t, uint32(42), got.Entries[0].Value.Data)
	assert.False(t, got.Entries[1].Present)
	assert.True(t, got.Entries[2].Present)
	assert.Equal(t, ValueString, got.Entries[2].Value.Type)
}

func TestTypeChunkSparseEntries(t *testing.T) {
	c := &TypeChunk{
		ID:     1,
		Sparse: true,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{},
			{Present: true, Key: 1, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 99}},
			{},
			{},
		},
	}
	got := buildAndParseType(t, c, NoneOptions)
	require.Len(t, got.Entries, 4)
	assert.False(t, got.Entries[0].Present)
	assert.True(t, got.Entries[1].Present)
	assert.Equal(t, uint32(99), got.Entries[1].Value.Data)
	assert.True(t, got.Sparse)
}

func TestTypeChunkComplexEntry(t *testing.T) {
	c := &TypeChunk{
		ID:     1,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{
				Present: true,
				Flags:   EntryFlagComplex,
				Key:     0,
				Parent:  ResourceID(0x7f010001),
				Map: []MapEntry{
					{Name: 0x01010001, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 1}},
					{Name: 0x01010002, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 2}},
				},
			},
		},
	}
	got := buildAndParseType(t, c, NoneOptions)
	require.Len(t, got.Entries, 1)
	e := got.Entries[0]
	assert.True(t, e.IsComplex())
	assert.Equal(t, ResourceID(0x7f010001), e.Parent)
	require.Len(t, e.Map, 2)
	assert.Equal(t, uint32(0x01010002), e.Map[1].Name)
}

// TestTypeChunkSparseComplexEntriesStayAligned exercises the sparse
// encoder's entry-offset alignment assertion along its complex-entry
// path (the one with variable-length Map data most likely to drift):
// every entry blob this package emits is a multiple of 4 bytes, so
// MarshalBody must never trip its own off%4 invariant check.
func TestTypeChunkSparseComplexEntriesStayAligned(t *testing.T) {
	c := &TypeChunk{
		ID:     1,
		Sparse: true,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{
				Present: true,
				Flags:   EntryFlagComplex,
				Key:     0,
				Map: []MapEntry{
					{Name: 1, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 1}},
				},
			},
			{Present: true, Key: 1, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec, Data: 2}},
		},
	}
	got := buildAndParseType(t, c, NoneOptions)
	require.Len(t, got.Entries, 2)
	assert.True(t, got.Entries[0].IsComplex())
	assert.True(t, got.Entries[1].Present)
	assert.Equal(t, uint32(2), got.Entries[1].Value.Data)
}

func TestTypeChunkPrivateResourcesStripsPublicFlag(t *testing.T) {
	c := &TypeChunk{
		ID:     1,
		Config: &Config{KnownLen: 28},
		Entries: []Entry{
			{Present: true, Flags: EntryFlagPublic, Value: ResourceValue{Size: ValueSize, Type: ValueIntDec}},
		},
	}
	got := buildAndParseType(t, c, SerializeOptions{PrivateResources: true})
	assert.Equal(t, uint16(0), got.Entries[0].Flags&EntryFlagPublic)
}

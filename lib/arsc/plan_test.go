// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanApplyToTable(t *testing.T) {
	table := buildSampleTable()
	f := &File{Chunks: []*Chunk{{Body: table}}}

	pkg := table.Packages()[0]
	pkg.KeyStringPool().AddString("other_key")

	plan := &Plan{
		RenameStrings: []RenameStringOp{{Index: 0, To: "Hi"}},
		RenameKeys:    []RenameKeyOp{{PackageID: 0x7f, Index: 1, To: "renamed"}},
	}
	require.NoError(t, plan.Apply(f))

	assert.Equal(t, []string{"Hi"}, table.GlobalStringPool().Strings)
	assert.Equal(t, []string{"app_name", "renamed"}, pkg.KeyStringPool().Strings)
}

func TestPlanApplyOrdersDeletesLast(t *testing.T) {
	table := buildSampleTable()
	f := &File{Chunks: []*Chunk{{Body: table}}}
	table.GlobalStringPool().AddString("World")

	pkg := table.Packages()[0]
	_, types := pkg.TypesByID(1)
	types[0].Entries[0].Value.Data = 1 // points at "World"

	plan := &Plan{
		RenameStrings: []RenameStringOp{{Index: 1, To: "Planet"}},
		DeleteStrings: []uint32{0},
	}
	require.NoError(t, plan.Apply(f))

	assert.Equal(t, []string{"Planet"}, table.GlobalStringPool().Strings)
	assert.Equal(t, uint32(0), types[0].Entries[0].Value.Data)
}

func TestPlanApplyRemapResources(t *testing.T) {
	tree := buildSampleXML()
	f := &File{Chunks: []*Chunk{{Body: tree}}}
	elem := tree.Children[2].Body.(*XMLElementStartChunk)
	oldID, err := NewResourceID(0x01, 0x01, 0x0003)
	require.NoError(t, err)
	elem.Attributes[0].TypedValue = ResourceValue{Size: ValueSize, Type: ValueReference, Data: uint32(oldID)}

	newID, err := NewResourceID(0x01, 0x01, 0x0004)
	require.NoError(t, err)
	plan := &Plan{RemapResources: []RemapResourceOp{{From: oldID, To: newID}}}
	require.NoError(t, plan.Apply(f))

	assert.Equal(t, uint32(newID), elem.Attributes[0].TypedValue.Data)
}

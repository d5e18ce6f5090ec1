// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTripTable(t *testing.T) {
	table := buildSampleTable()
	raw, err := table.MarshalBody(NoneOptions)
	require.NoError(t, err)

	f, err := ParseFile(raw)
	require.NoError(t, err)
	require.NotNil(t, f.Table())
	assert.Nil(t, f.XML())

	out, err := f.Marshal(NoneOptions)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestFileRoundTripXML(t *testing.T) {
	tree := buildSampleXML()
	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)

	f, err := ParseFile(raw)
	require.NoError(t, err)
	require.NotNil(t, f.XML())
	assert.Nil(t, f.Table())

	out, err := f.Marshal(NoneOptions)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestFileRejectsTruncatedChunk(t *testing.T) {
	_, err := ParseFile([]byte{0x01, 0x00, 0x08, 0x00, 0xFF, 0xFF, 0x00, 0x00})
	require.Error(t, err)
	var malformed *MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

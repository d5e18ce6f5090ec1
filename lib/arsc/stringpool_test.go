// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAndParsePool(t *testing.T, c *StringPoolChunk, opts SerializeOptions) *StringPoolChunk {
	t.Helper()
	raw, err := c.MarshalBody(opts)
	require.NoError(t, err)
	got, err := parseStringPool(raw, 0)
	require.NoError(t, err)
	return got
}

func TestStringPoolRoundTripUTF8(t *testing.T) {
	c := &StringPoolChunk{
		Encoding: EncodingUTF8,
		Strings:  []string{"hello", "ābĉ123", ""},
	}
	got := buildAndParsePool(t, c, NoneOptions)
	assert.Equal(t, c.Strings, got.Strings)
	assert.Equal(t, EncodingUTF8, got.Encoding)
}

func TestStringPoolRoundTripUTF16(t *testing.T) {
	c := &StringPoolChunk{
		Encoding: EncodingUTF16,
		Strings:  []string{"hello", "world", "emoji:\U0001F600"},
	}
	got := buildAndParsePool(t, c, NoneOptions)
	assert.Equal(t, c.Strings, got.Strings)
	assert.Equal(t, EncodingUTF16, got.Encoding)
}

func TestStringPoolStyles(t *testing.T) {
	c := &StringPoolChunk{
		Encoding: EncodingUTF8,
		Strings:  []string{"b", "bold text"},
		Styles: [][]Span{
			nil,
			{{StringIdx: 0, Start: 0, Stop: 3}},
		},
	}
	got := buildAndParsePool(t, c, NoneOptions)
	require.Len(t, got.Styles, 2)
	assert.Empty(t, got.Styles[0])
	assert.Equal(t, []Span{{StringIdx: 0, Start: 0, Stop: 3}}, got.Styles[1])
}

func TestStringPoolSortedFlagPreserved(t *testing.T) {
	c := &StringPoolChunk{Encoding: EncodingUTF8, Sorted: true, Strings: []string{"a", "b"}}
	got := buildAndParsePool(t, c, NoneOptions)
	assert.True(t, got.Sorted)
}

func TestStringPoolAddSetDelete(t *testing.T) {
	c := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"a", "b", "c"}}
	idx := c.AddString("d")
	assert.Equal(t, uint32(3), idx)
	require.NoError(t, c.SetString(1, "B"))
	assert.True(t, c.IsDirty())

	remap, err := c.DeleteStrings([]uint32{0})
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 1, 2}, remap)
	assert.Equal(t, []string{"B", "c", "d"}, c.Strings)
}

func TestStringPoolDeleteProtectsStyleTarget(t *testing.T) {
	// index 0 ("b") names the tag of a style applied to the surviving
	// string at index 1; deleting 0 must be refused by the protection
	// pass, not silently corrupt the span.
	c := &StringPoolChunk{
		Encoding: EncodingUTF8,
		Strings:  []string{"b", "bold text"},
		Styles:   [][]Span{nil, {{StringIdx: 0, Start: 0, Stop: 3}}},
	}
	remap, err := c.DeleteStrings([]uint32{0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, remap) // 0 was protected, not deleted
	assert.Equal(t, []string{"b", "bold text"}, c.Strings)
	assert.Equal(t, uint32(0), c.Styles[1][0].StringIdx)
}

// TestStringPoolShrinkSharesBytesNotIndices pins §4.2's encode
// contract: Shrink (and the originally-deduplicated flag) only share
// string BYTES between repeated indices; the index space (string count,
// offset table size) never shrinks, so every existing reference stays
// valid without a remap.
func TestStringPoolShrinkSharesBytesNotIndices(t *testing.T) {
	c := &StringPoolChunk{
		Encoding: EncodingUTF8,
		Strings:  []string{"dup", "other", "dup"},
	}
	assert.True(t, c.HasDuplicates())

	none, err := c.MarshalBody(NoneOptions)
	require.NoError(t, err)
	shrunk, err := c.MarshalBody(SerializeOptions{Shrink: true})
	require.NoError(t, err)
	assert.Less(t, len(shrunk), len(none))

	got, err := parseStringPool(shrunk, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "other", "dup"}, got.Strings)
}

func TestStringPoolOriginallyDeduplicatedReemitsSharedUnderNone(t *testing.T) {
	c := &StringPoolChunk{Encoding: EncodingUTF8, Strings: []string{"dup", "other", "dup"}}
	shrunk, err := c.MarshalBody(SerializeOptions{Shrink: true})
	require.NoError(t, err)

	reparsed, err := parseStringPool(shrunk, 0)
	require.NoError(t, err)
	require.True(t, reparsed.IsOriginallyDeduplicated())

	reemitted, err := reparsed.MarshalBody(NoneOptions)
	require.NoError(t, err)
	assert.Equal(t, shrunk, reemitted)
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripIdentity(t *testing.T) {
	tree := buildSampleXML()
	raw, err := tree.MarshalBody(NoneOptions)
	require.NoError(t, err)

	res, err := RoundTrip(raw)
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestRoundTripReportsFirstDiff(t *testing.T) {
	pkg := &PackageChunk{ID: 0x7f, Name: "Test"}
	raw, err := pkg.MarshalBody(NoneOptions)
	require.NoError(t, err)

	tampered := append([]byte(nil), raw...)
	// the fixed-width package name field is only NUL-terminated, not
	// NUL-padded; a producer leaving stale bytes after the terminator
	// parses identically but re-serializes with zero padding instead.
	tampered[0x0C+5*2] = 0xAB

	res, err := RoundTrip(tampered)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 0x0C+5*2, res.FirstDiffOffset)
}

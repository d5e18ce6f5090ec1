// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUTF8Literal(t *testing.T) {
	got := EncodeUTF8("ābĉ123")
	want := []byte{0x06, 0x08, 0xC4, 0x81, 0x62, 0xC4, 0x89, 0x31, 0x32, 0x33, 0x00}
	assert.Equal(t, want, got)
}

func TestEncodeUTF16Literal(t *testing.T) {
	got := EncodeUTF16("ābĉ123")
	want := []byte{
		0x06, 0x00,
		0x01, 0x01,
		0x62, 0x00,
		0x09, 0x01,
		0x31, 0x00,
		0x32, 0x00,
		0x33, 0x00,
		0x00, 0x00,
	}
	assert.Equal(t, want, got)
}

func TestEncodeUTF8LongPrefix(t *testing.T) {
	s := strings.Repeat("a", 255)
	got := EncodeUTF8(s)
	assert.Equal(t, []byte{0x80, 0xFF, 0x80, 0xFF}, got[:4])
	assert.Equal(t, byte(0x00), got[len(got)-1])
}

func TestEncodeUTF16LongPrefix(t *testing.T) {
	got16 := EncodeUTF16(strings.Repeat("a", 255))
	assert.Equal(t, []byte{0xFF, 0x00}, got16[:2])

	got64k := EncodeUTF16(strings.Repeat("a", 65535))
	assert.Equal(t, []byte{0x00, 0x80, 0xFF, 0xFF}, got64k[:4])
}

func TestUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "ābĉ123", strings.Repeat("x", 300), "emoji:\U0001F600!"} {
		enc := EncodeUTF8(s)
		dec, n, err := DecodeUTF8(enc)
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, s, dec)
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "ābĉ123", strings.Repeat("x", 40000), "emoji:\U0001F600!"} {
		enc := EncodeUTF16(s)
		dec, n, err := DecodeUTF16(enc)
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, s, dec)
	}
}

func TestDecodeUTF8DefensiveFourByte(t *testing.T) {
	// A literal 4-byte UTF-8 sequence for U+1F600, as some non-Android
	// encoders might emit instead of the two-surrogate-half form.
	body := []byte{0xF0, 0x9F, 0x98, 0x80}
	dat := append(append(encodeLen8(2), encodeLen8(len(body))...), body...)
	dat = append(dat, 0x00)
	s, n, err := DecodeUTF8(dat)
	require.NoError(t, err)
	assert.Equal(t, len(dat), n)
	assert.Equal(t, "\U0001F600", s)
}

func TestLen16(t *testing.T) {
	assert.Equal(t, 6, Len16("ābĉ123"))
	assert.Equal(t, 2, Len16("\U0001F600"))
}

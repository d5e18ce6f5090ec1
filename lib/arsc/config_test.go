// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTripMinimal(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.SetLanguage("en"))
	require.NoError(t, c.SetRegion("US"))
	c.Density = 240
	c.KnownLen = 28

	raw := c.Marshal()
	assert.Len(t, raw, 28)

	got, err := ParseConfig(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, "en", got.LanguageString())
	assert.Equal(t, "US", got.CountryString())
	assert.Equal(t, uint16(240), got.Density)
	assert.Equal(t, 28, got.KnownLen)
	assert.Empty(t, got.UnknownTail)
}

func TestConfigRoundTripFull(t *testing.T) {
	c := &Config{
		Mcc: 310, Mnc: 260,
		Orientation: 1, Touchscreen: 3, Density: 480,
		Keyboard: 1, Navigation: 1, InputFlags: 2,
		ScreenWidth: 1080, ScreenHeight: 1920,
		SdkVersion: 29, MinorVersion: 0,
		ScreenLayout: 2, UIMode: 1, SmallestScreenWidthDp: 360,
		ScreenWidthDp: 360, ScreenHeightDp: 640,
		ScreenLayout2: 1, ColorMode: 2,
		KnownLen: 52,
	}
	copy(c.LocaleScript[:], "Latn")
	require.NoError(t, c.SetLanguage("en"))
	require.NoError(t, c.SetRegion("US"))

	raw := c.Marshal()
	assert.Len(t, raw, 52)

	got, err := ParseConfig(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, c.Mcc, got.Mcc)
	assert.Equal(t, c.ScreenWidthDp, got.ScreenWidthDp)
	assert.Equal(t, "Latn", string(got.LocaleScript[:]))
	assert.Equal(t, uint8(1), got.ScreenLayout2)
	assert.Equal(t, 52, got.KnownLen)
}

func TestConfigUnknownTailPreserved(t *testing.T) {
	// size=30 falls strictly between the 28 and 32 thresholds, so the
	// trailing 2 bytes can't belong to any complete known block and
	// must round-trip as opaque tail rather than being interpreted.
	c := &Config{KnownLen: 28, UnknownTail: []byte{0xAA, 0xBB}}
	raw := c.Marshal()
	assert.Len(t, raw, 30)

	got, err := ParseConfig(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, 28, got.KnownLen)
	assert.Equal(t, []byte{0xAA, 0xBB}, got.UnknownTail)
}

func TestConfigThreeLetterLanguage(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.SetLanguage("fil"))
	assert.Equal(t, "fil", c.LanguageString())
}

func TestConfigLocaleDisplay(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.SetLanguage("en"))
	require.NoError(t, c.SetRegion("US"))
	assert.Equal(t, "en-US", c.Locale())
}

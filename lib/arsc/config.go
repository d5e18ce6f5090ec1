// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/language"
)

// Config is a resource configuration descriptor: the variable-length,
// growable-over-Android-releases struct that a TABLE_TYPE's config
// field, and a TypeSpec entry's config mask, describe resources as
// matching. Fields that the struct's declared Size didn't reach when
// it was parsed are zero and are not written back out; KnownLen
// records how much of the struct was actually present so that
// re-serializing an old, short config doesn't grow it, and UnknownTail
// preserves any bytes beyond the fields this package understands
// (including a size larger than 52 written by a newer Android release)
// verbatim.
type Config struct {
	Mcc, Mnc uint16

	Language [2]byte
	Country  [2]byte

	Orientation, Touchscreen uint8
	Density                  uint16

	Keyboard, Navigation, InputFlags, InputPad0 uint8

	ScreenWidth, ScreenHeight uint16

	SdkVersion, MinorVersion uint16

	ScreenLayout          uint8
	UIMode                uint8
	SmallestScreenWidthDp uint16

	ScreenWidthDp, ScreenHeightDp uint16

	LocaleScript  [4]byte
	LocaleVariant [8]byte

	ScreenLayout2 uint8
	ColorMode     uint8
	configUnused2 uint16

	// KnownLen is the prefix length (one of 4, 28, 32, 36, 48, 52) of
	// the struct that was fully present at parse time; 4 means only the
	// size field itself.
	KnownLen int

	// UnknownTail is raw bytes from KnownLen up to the struct's
	// declared size: either an in-progress block that didn't fully
	// fit (so this package declines to interpret it), or real
	// padding/future fields from a newer format revision.
	UnknownTail []byte
}

// ParseConfig parses a ResTable_config-shaped byte run. dat must
// contain at least the 4-byte declared size plus that many bytes.
func ParseConfig(dat []byte, offset int64) (*Config, error) {
	if len(dat) < 4 {
		return nil, &MalformedInputError{Offset: offset, Msg: "truncated resource configuration size field"}
	}
	size := int(binary.LittleEndian.Uint32(dat[0:4]))
	if size < 4 || len(dat) < size {
		return nil, &MalformedInputError{Offset: offset, Msg: fmt.Sprintf("resource configuration declares size %d, have %d bytes", size, len(dat))}
	}
	// Fields are offset by the 4-byte size prefix itself; the
	// thresholds above are expressed relative to that prefix, matching
	// the struct's own self-reported size field.
	body := dat[4:size]
	c := &Config{}

	read := 0
	have := func(end int) bool { return len(body) >= end }

	if have(24) {
		c.Mcc = binary.LittleEndian.Uint16(body[0:2])
		c.Mnc = binary.LittleEndian.Uint16(body[2:4])
		copy(c.Language[:], body[4:6])
		copy(c.Country[:], body[6:8])
		c.Orientation = body[8]
		c.Touchscreen = body[9]
		c.Density = binary.LittleEndian.Uint16(body[10:12])
		c.Keyboard = body[12]
		c.Navigation = body[13]
		c.InputFlags = body[14]
		c.InputPad0 = body[15]
		c.ScreenWidth = binary.LittleEndian.Uint16(body[16:18])
		c.ScreenHeight = binary.LittleEndian.Uint16(body[18:20])
		c.SdkVersion = binary.LittleEndian.Uint16(body[20:22])
		c.MinorVersion = binary.LittleEndian.Uint16(body[22:24])
		read = 24
	}
	if read == 24 && have(28) {
		c.ScreenLayout = body[24]
		c.UIMode = body[25]
		c.SmallestScreenWidthDp = binary.LittleEndian.Uint16(body[26:28])
		read = 28
	}
	if read == 28 && have(32) {
		c.ScreenWidthDp = binary.LittleEndian.Uint16(body[28:30])
		c.ScreenHeightDp = binary.LittleEndian.Uint16(body[30:32])
		read = 32
	}
	if read == 32 && have(44) {
		copy(c.LocaleScript[:], body[32:36])
		copy(c.LocaleVariant[:], body[36:44])
		read = 44
	}
	if read == 44 && have(48) {
		c.ScreenLayout2 = body[44]
		c.ColorMode = body[45]
		c.configUnused2 = binary.LittleEndian.Uint16(body[46:48])
		read = 48
	}

	c.KnownLen = read + 4
	if size > c.KnownLen {
		c.UnknownTail = append([]byte(nil), dat[c.KnownLen:size]...)
	}
	return c, nil
}

// Marshal re-serializes the configuration, reproducing its original
// declared size exactly (KnownLen plus len(UnknownTail)) rather than
// growing every config to the largest known layout.
func (c *Config) Marshal() []byte {
	size := c.KnownLen + len(c.UnknownTail)
	out := make([]byte, size)
	binary.LittleEndian.PutUint32(out[0:4], uint32(size))
	body := out[4:]

	known := c.KnownLen - 4
	if known >= 24 {
		binary.LittleEndian.PutUint16(body[0:2], c.Mcc)
		binary.LittleEndian.PutUint16(body[2:4], c.Mnc)
		copy(body[4:6], c.Language[:])
		copy(body[6:8], c.Country[:])
		body[8] = c.Orientation
		body[9] = c.Touchscreen
		binary.LittleEndian.PutUint16(body[10:12], c.Density)
		body[12] = c.Keyboard
		body[13] = c.Navigation
		body[14] = c.InputFlags
		body[15] = c.InputPad0
		binary.LittleEndian.PutUint16(body[16:18], c.ScreenWidth)
		binary.LittleEndian.PutUint16(body[18:20], c.ScreenHeight)
		binary.LittleEndian.PutUint16(body[20:22], c.SdkVersion)
		binary.LittleEndian.PutUint16(body[22:24], c.MinorVersion)
	}
	if known >= 28 {
		body[24] = c.ScreenLayout
		body[25] = c.UIMode
		binary.LittleEndian.PutUint16(body[26:28], c.SmallestScreenWidthDp)
	}
	if known >= 32 {
		binary.LittleEndian.PutUint16(body[28:30], c.ScreenWidthDp)
		binary.LittleEndian.PutUint16(body[30:32], c.ScreenHeightDp)
	}
	if known >= 44 {
		copy(body[32:36], c.LocaleScript[:])
		copy(body[36:44], c.LocaleVariant[:])
	}
	if known >= 48 {
		body[44] = c.ScreenLayout2
		body[45] = c.ColorMode
		binary.LittleEndian.PutUint16(body[46:48], c.configUnused2)
	}
	copy(out[c.KnownLen:], c.UnknownTail)
	return out
}

// packLanguageOrRegion implements the AOSP ResTable_config bit-packing
// for 3-letter language/region codes: a 2-letter code is stored as raw
// ASCII; a 3-letter code is packed 5 bits per letter (relative to base)
// across the 2 output bytes with the top bit of the first byte set as
// a flag.
func packLanguageOrRegion(s string, base byte) [2]byte {
	var out [2]byte
	switch len(s) {
	case 0:
	case 2:
		out[0], out[1] = s[0], s[1]
	case 3:
		first := s[0] - base
		second := s[1] - base
		third := s[2] - base
		out[0] = 0x80 | (first << 2) | (second >> 3)
		out[1] = (second << 5) | third
	}
	return out
}

func unpackLanguageOrRegion(in [2]byte, base byte) string {
	if in[0] == 0 && in[1] == 0 {
		return ""
	}
	if in[0]&0x80 == 0 {
		n := 2
		if in[1] == 0 {
			n = 1
		}
		return string(in[:n])
	}
	first := (in[0] >> 2) & 0x1F
	second := ((in[0] & 0x03) << 3) | ((in[1] >> 5) & 0x07)
	third := in[1] & 0x1F
	return string([]byte{base + first, base + second, base + third})
}

// SetLanguage packs a BCP-47 primary-language subtag (2 or 3 letters).
func (c *Config) SetLanguage(s string) error {
	if len(s) != 0 && len(s) != 2 && len(s) != 3 {
		return &InvariantViolationError{Msg: fmt.Sprintf("language subtag %q must be 2 or 3 letters", s)}
	}
	c.Language = packLanguageOrRegion(s, 'a'-1)
	return nil
}

// SetRegion packs a 2-letter ISO-3166-1 or 3-digit UN M.49 region code.
func (c *Config) SetRegion(s string) error {
	if len(s) != 0 && len(s) != 2 && len(s) != 3 {
		return &InvariantViolationError{Msg: fmt.Sprintf("region subtag %q must be 2 letters or 3 digits", s)}
	}
	base := byte('a' - 1)
	if len(s) == 3 {
		base = '0'
	}
	c.Country = packLanguageOrRegion(s, base)
	return nil
}

// LanguageString unpacks the Language field back into a BCP-47 subtag.
func (c *Config) LanguageString() string {
	return unpackLanguageOrRegion(c.Language, 'a'-1)
}

// CountryString unpacks the Country field back into its subtag. A
// 2-letter region is stored as raw ASCII; a packed (top-bit-set)
// region is always unpacked as 3 digits, since SetRegion packs every
// 3-character region with base '0'.
func (c *Config) CountryString() string {
	return unpackLanguageOrRegion(c.Country, '0')
}

// Locale renders this configuration's language and region as a BCP-47
// tag, for human-readable dump output; the packed bit-level codec
// above has no analogue in the ecosystem and is hand-rolled, but
// display formatting is delegated to x/text/language.
func (c *Config) Locale() string {
	lang := c.LanguageString()
	if lang == "" {
		return ""
	}
	region := c.CountryString()
	tag := language.Make(lang)
	if region != "" {
		if r, err := language.ParseRegion(region); err == nil {
			if composed, err := language.Compose(tag, r); err == nil {
				tag = composed
			}
		}
	}
	return tag.String()
}

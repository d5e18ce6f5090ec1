// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"fmt"

	"github.com/arscrec/arscrec/lib/binstruct"
	"github.com/arscrec/arscrec/lib/containers"
)

// Span is a single styled-text run: a markup tag named by the string
// at StringIdx of the SAME pool, applied to code units [Start, Stop]
// (inclusive) of the styled string, indexed per Len16.
type Span struct {
	StringIdx uint32
	Start     uint32
	Stop      uint32
}

const spanEnd = 0xFFFFFFFF

const spanSize = 12

func marshalSpan(s Span) []byte {
	buf := make([]byte, spanSize)
	binary.LittleEndian.PutUint32(buf[0:4], s.StringIdx)
	binary.LittleEndian.PutUint32(buf[4:8], s.Start)
	binary.LittleEndian.PutUint32(buf[8:12], s.Stop)
	return buf
}

const (
	poolFlagSorted = 1 << 0
	poolFlagUTF8   = 1 << 8
)

const poolHeaderSize = 0x1C

// StringPoolChunk is a STRING_POOL chunk: the deduplicated table of
// string (and, optionally, styled-string) literals referenced by index
// from the rest of the containing chunk tree.
type StringPoolChunk struct {
	Encoding Encoding

	// Sorted mirrors the header's SORTED flag bit. It is round-tripped
	// verbatim; this package never reorders strings to match it.
	Sorted bool

	// Strings is the full string table, in index order. Style runs
	// reference entries of this same slice by index.
	Strings []string

	// Styles holds one span run per styled string; Styles[i] styles
	// Strings[i]. A pool with fewer strings with style runs than plain
	// strings has len(Styles) < len(Strings).
	Styles [][]Span

	dirty bool

	// originallyDeduplicated records whether this pool's on-disk string
	// offsets, at parse time, contained a non-increasing step — the
	// brittle heuristic of §4.2/§9: such a pool must re-share string
	// bytes by content on every re-emission, even under NoneOptions, to
	// reproduce the producer's own byte layout.
	originallyDeduplicated bool
}

// IsOriginallyDeduplicated reports whether this pool's on-disk string
// offsets were not strictly increasing when parsed, per §4.2's
// heuristic. Re-emission dedups such a pool's string bytes unconditionally.
func (c *StringPoolChunk) IsOriginallyDeduplicated() bool { return c.originallyDeduplicated }

func (c *StringPoolChunk) Kind() Kind { return KindStringPool }

func parseStringPool(full []byte, chunkOffset int64) (*StringPoolChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: err.Error()}
	}
	if len(full) < poolHeaderSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: "truncated string pool header"}
	}
	stringCount := binary.LittleEndian.Uint32(full[0x08:0x0C])
	styleCount := binary.LittleEndian.Uint32(full[0x0C:0x10])
	flags := binary.LittleEndian.Uint32(full[0x10:0x14])
	stringsStart := binary.LittleEndian.Uint32(full[0x14:0x18])
	stylesStart := binary.LittleEndian.Uint32(full[0x18:0x1C])

	c := &StringPoolChunk{
		Sorted:   flags&poolFlagSorted != 0,
		Encoding: EncodingUTF16,
	}
	if flags&poolFlagUTF8 != 0 {
		c.Encoding = EncodingUTF8
	}

	offsetsStart := int(meta.HeaderSize)
	offsetsEnd := offsetsStart + int(stringCount)*4
	if offsetsEnd > len(full) {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: "string offset array overruns chunk"}
	}
	styleOffsetsEnd := offsetsEnd + int(styleCount)*4
	if styleCount > 0 && styleOffsetsEnd > len(full) {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: "style offset array overruns chunk"}
	}

	c.Strings = make([]string, stringCount)
	var prevOff uint32
	for i := uint32(0); i < stringCount; i++ {
		off := binary.LittleEndian.Uint32(full[offsetsStart+int(i)*4:])
		if i > 0 && off <= prevOff {
			c.originallyDeduplicated = true
		}
		prevOff = off
		pos := int64(stringsStart) + int64(off)
		if pos < 0 || pos > int64(len(full)) {
			return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: fmt.Sprintf("string %d offset out of range", i)}
		}
		s, _, err := c.Encoding.Decode(full[pos:])
		if err != nil {
			return nil, &MalformedInputError{Offset: chunkOffset + pos, Kind: KindStringPool, Msg: err.Error()}
		}
		c.Strings[i] = s
	}

	if styleCount > 0 {
		c.Styles = make([][]Span, styleCount)
		for i := uint32(0); i < styleCount; i++ {
			off := binary.LittleEndian.Uint32(full[offsetsEnd+int(i)*4:])
			pos := int64(stylesStart) + int64(off)
			var spans []Span
			for {
				if pos+4 > int64(len(full)) {
					return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: "truncated style span run"}
				}
				name := binary.LittleEndian.Uint32(full[pos:])
				if name == spanEnd {
					break
				}
				if pos+spanSize > int64(len(full)) {
					return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindStringPool, Msg: "truncated style span"}
				}
				spans = append(spans, Span{
					StringIdx: name,
					Start:     binary.LittleEndian.Uint32(full[pos+4:]),
					Stop:      binary.LittleEndian.Uint32(full[pos+8:]),
				})
				pos += spanSize
			}
			c.Styles[i] = spans
		}
	}

	return c, nil
}

// MarshalBody re-serializes the pool, always recomputing offsets and
// counts from the current Strings/Styles slices. The index space never
// shrinks here — every caller-visible index stays valid — but when
// dedup applies (Shrink, or a pool flagged originally-deduplicated), a
// string whose content was already written at some earlier index
// reuses that earlier byte offset and contributes no new bytes, mirroring
// the producer-side sharing described in §4.2.
func (c *StringPoolChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	dedup := opts.Shrink || c.originallyDeduplicated

	stringOffsets := make([]uint32, len(c.Strings))
	var stringBlob []byte
	seenStrings := make(map[string]uint32, len(c.Strings))
	for i, s := range c.Strings {
		if dedup {
			if off, ok := seenStrings[s]; ok {
				stringOffsets[i] = off
				continue
			}
		}
		off := uint32(len(stringBlob))
		stringOffsets[i] = off
		stringBlob = append(stringBlob, c.Encoding.Encode(s)...)
		if dedup {
			seenStrings[s] = off
		}
	}

	styleOffsets := make([]uint32, len(c.Styles))
	var styleBlob []byte
	seenStyles := make(map[string]uint32, len(c.Styles))
	for i, spans := range c.Styles {
		var runBytes []byte
		for _, sp := range spans {
			runBytes = append(runBytes, marshalSpan(sp)...)
		}
		runBytes = append(runBytes, 0xFF, 0xFF, 0xFF, 0xFF)
		if dedup {
			if off, ok := seenStyles[string(runBytes)]; ok {
				styleOffsets[i] = off
				continue
			}
		}
		off := uint32(len(styleBlob))
		styleOffsets[i] = off
		styleBlob = append(styleBlob, runBytes...)
		if dedup {
			seenStyles[string(runBytes)] = off
		}
	}
	if len(c.Styles) > 0 {
		styleBlob = append(styleBlob, 0xFF, 0xFF, 0xFF, 0xFF)
	}

	headerSize := poolHeaderSize
	stringsStart := headerSize + len(c.Strings)*4 + len(c.Styles)*4
	// align string data start to a 4-byte boundary, matching the
	// format's alignment convention for the offset arrays.
	stringsStart = align4(stringsStart)
	stylesStart := uint32(0)
	if len(c.Styles) > 0 {
		stylesStart = uint32(align4(stringsStart + len(stringBlob)))
	}

	out := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindStringPool))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(headerSize))
	binary.LittleEndian.PutUint32(out[0x8:0xC], uint32(len(c.Strings)))
	binary.LittleEndian.PutUint32(out[0xC:0x10], uint32(len(c.Styles)))
	var flags uint32
	if c.Sorted {
		flags |= poolFlagSorted
	}
	if c.Encoding == EncodingUTF8 {
		flags |= poolFlagUTF8
	}
	binary.LittleEndian.PutUint32(out[0x10:0x14], flags)
	binary.LittleEndian.PutUint32(out[0x14:0x18], uint32(stringsStart))
	binary.LittleEndian.PutUint32(out[0x18:0x1C], stylesStart)

	for _, off := range stringOffsets {
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], off)
		out = append(out, w[:]...)
	}
	for _, off := range styleOffsets {
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], off)
		out = append(out, w[:]...)
	}
	out = padTo(out, stringsStart)
	out = append(out, stringBlob...)
	if len(c.Styles) > 0 {
		out = padTo(out, int(stylesStart))
		out = append(out, styleBlob...)
	}
	out = padTo(out, align4(len(out)))

	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

func align4(n int) int { return (n + 3) &^ 3 }

func padTo(b []byte, n int) []byte {
	for len(b) < n {
		b = append(b, 0)
	}
	return b
}

// AddString appends s to the pool and returns its new index.
func (c *StringPoolChunk) AddString(s string) uint32 {
	c.Strings = append(c.Strings, s)
	c.dirty = true
	return uint32(len(c.Strings) - 1)
}

// SetString overwrites the string at idx in place, preserving its index
// (and any style run already associated with it) — existing references
// to idx from the rest of the chunk tree keep resolving correctly.
func (c *StringPoolChunk) SetString(idx uint32, s string) error {
	if int(idx) >= len(c.Strings) {
		return &InvariantViolationError{Msg: fmt.Sprintf("string index %d out of range (pool has %d strings)", idx, len(c.Strings))}
	}
	c.Strings[idx] = s
	c.dirty = true
	return nil
}

// DeleteStrings removes the strings at the given indices and returns a
// remap table old-index -> new-index (or -1 for a deleted string) for
// the caller to thread through every other chunk that references this
// pool by index.
//
// An index named in idxs is protected (kept alive) when a surviving
// style's span still names it as a tag; protection cascades, since
// protecting an owner string makes its own style spans "surviving" in
// turn. After the cascade converges, every index still marked for
// deletion is known unreferenced by any remaining style, so the
// rewritten span name-indices can never go negative — if one somehow
// did, that would mean this invariant was violated, which is the one
// case DeleteStrings reports as an error rather than silently
// corrupting the pool.
func (c *StringPoolChunk) DeleteStrings(idxs []uint32) ([]int, error) {
	dead := containers.NewSet(idxs...)

	for changed := true; changed; {
		changed = false
		for i, spans := range c.Styles {
			if dead.Has(uint32(i)) {
				continue
			}
			for _, sp := range spans {
				if dead.Has(sp.StringIdx) {
					dead.Delete(sp.StringIdx)
					changed = true
				}
			}
		}
	}

	remap := make([]int, len(c.Strings))
	var newStrings []string
	var newStyles [][]Span
	for i, s := range c.Strings {
		if dead.Has(uint32(i)) {
			remap[i] = -1
			continue
		}
		remap[i] = len(newStrings)
		newStrings = append(newStrings, s)
		if i < len(c.Styles) {
			newStyles = append(newStyles, c.Styles[i])
		} else if len(c.Styles) > 0 {
			newStyles = append(newStyles, nil)
		}
	}

	for _, spans := range newStyles {
		for i, sp := range spans {
			if int(sp.StringIdx) >= len(remap) || remap[sp.StringIdx] < 0 {
				return nil, &InvariantViolationError{Msg: fmt.Sprintf("style still names deleted string %d after protection pass", sp.StringIdx)}
			}
			spans[i].StringIdx = uint32(remap[sp.StringIdx])
		}
	}

	c.Strings = newStrings
	c.Styles = newStyles
	c.dirty = true
	return remap, nil
}

func (c *StringPoolChunk) IsDirty() bool { return c.dirty }

// HasDuplicates reports whether the pool, as currently populated,
// contains two identical strings — i.e. whether a Shrink re-emission
// would actually save any bytes by sharing string data.
func (c *StringPoolChunk) HasDuplicates() bool {
	seen := make(map[string]bool, len(c.Strings))
	for _, s := range c.Strings {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/arscrec/arscrec/lib/binstruct"
)

const libraryHeaderSize = 0xC

// libraryEntryNameUnits is the fixed width, in UTF-16 code units, of a
// library entry's package name field.
const libraryEntryNameUnits = 128

const libraryEntrySize = 4 + libraryEntryNameUnits*2

// LibraryEntry names one shared-library package this table was linked
// against, and the package id it was assigned in this table.
type LibraryEntry struct {
	PackageID   uint32
	PackageName string
}

// LibraryChunk is a TABLE_LIBRARY chunk: the table of shared-library
// package ids a statically-linked table references, used to remap
// package ids at install/link time.
type LibraryChunk struct {
	Entries []LibraryEntry
}

func (c *LibraryChunk) Kind() Kind { return KindTableLibrary }

func parseLibrary(full []byte, chunkOffset int64) (*LibraryChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableLibrary, Msg: err.Error()}
	}
	if len(full) < libraryHeaderSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableLibrary, Msg: "truncated library header"}
	}
	count := binary.LittleEndian.Uint32(full[0x08:0x0C])

	need := int(meta.HeaderSize) + int(count)*libraryEntrySize
	if len(full) < need {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableLibrary, Msg: "library entry array overruns chunk"}
	}

	entries := make([]LibraryEntry, count)
	base := int(meta.HeaderSize)
	for i := range entries {
		p := base + i*libraryEntrySize
		pkgID := binary.LittleEndian.Uint32(full[p : p+4])
		units := make([]uint16, libraryEntryNameUnits)
		for j := range units {
			units[j] = binary.LittleEndian.Uint16(full[p+4+j*2:])
		}
		// the field is NUL-padded, not length-prefixed; trim at the
		// first NUL code unit.
		for j, u := range units {
			if u == 0 {
				units = units[:j]
				break
			}
		}
		entries[i] = LibraryEntry{PackageID: pkgID, PackageName: string(utf16.Decode(units))}
	}
	return &LibraryChunk{Entries: entries}, nil
}

func (c *LibraryChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := make([]byte, libraryHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindTableLibrary))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(libraryHeaderSize))
	binary.LittleEndian.PutUint32(out[0x08:0x0C], uint32(len(c.Entries)))

	for _, e := range c.Entries {
		var buf [libraryEntrySize]byte
		binary.LittleEndian.PutUint32(buf[0:4], e.PackageID)
		units := utf16.Encode([]rune(e.PackageName))
		if len(units) > libraryEntryNameUnits {
			units = units[:libraryEntryNameUnits]
		}
		for j, u := range units {
			binary.LittleEndian.PutUint16(buf[4+j*2:], u)
		}
		out = append(out, buf[:]...)
	}
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

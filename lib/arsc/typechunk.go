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

// entryOffsetPool recycles the dense-layout offset scratch slice across
// TypeChunk.MarshalBody calls: a table with many configurations of the
// same type re-marshals that many same-length slices back to back.
var entryOffsetPool containers.SlicePool[uint32]

const (
	EntryFlagComplex = uint16(0x0001)
	EntryFlagPublic  = uint16(0x0002)
	EntryFlagWeak    = uint16(0x0004)
)

const typeFlagSparse = uint8(0x01)

const typeFixedHeaderSize = 0x14 // up to, but not including, the variable-length Config

const noEntry = uint32(0xFFFFFFFF)

// MapEntry is one name/value pair of a complex (bag) entry, such as a
// style or an array.
type MapEntry struct {
	Name  uint32
	Value ResourceValue
}

// Entry is one resource definition within a TypeChunk: the value (or,
// for a complex/bag resource, the parent reference and name/value map)
// bound to a single entry slot for one configuration.
type Entry struct {
	Present bool
	Flags   uint16
	Key     uint32 // index into the package's key string pool

	// Simple-entry fields (Flags&EntryFlagComplex == 0).
	Value ResourceValue

	// Complex-entry fields (Flags&EntryFlagComplex != 0).
	Parent ResourceID
	Map    []MapEntry
}

func (e Entry) IsComplex() bool { return e.Flags&EntryFlagComplex != 0 }

// TypeChunk is a TABLE_TYPE chunk: the resource entries of one type,
// for one configuration.
type TypeChunk struct {
	ID     uint8
	Sparse bool
	Config *Config

	// Entries is indexed by logical entry index (matching the
	// corresponding TypeSpecChunk's Masks slice and its package's key
	// pool indices); a logical index with no definition in this
	// configuration has Entries[i].Present == false.
	Entries []Entry
}

func (c *TypeChunk) Kind() Kind { return KindTableType }

func parseType(full []byte, chunkOffset int64) (*TypeChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: err.Error()}
	}
	if len(full) < typeFixedHeaderSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "truncated type header"}
	}
	id := full[0x08]
	flags := full[0x09]
	entryCount := binary.LittleEndian.Uint32(full[0x0C:0x10])
	entriesStart := binary.LittleEndian.Uint32(full[0x10:0x14])

	cfg, err := ParseConfig(full[0x14:meta.HeaderSize], chunkOffset+0x14)
	if err != nil {
		return nil, err
	}

	c := &TypeChunk{
		ID:      id,
		Sparse:  flags&typeFlagSparse != 0,
		Config:  cfg,
		Entries: make([]Entry, entryCount),
	}

	offArrayStart := int(meta.HeaderSize)
	offArrayEnd := int(entriesStart)
	if offArrayEnd > len(full) || offArrayEnd < offArrayStart {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "type entriesStart out of range"}
	}

	readEntry := func(off uint32) (Entry, error) {
		pos := int64(entriesStart) + int64(off)
		if pos < 0 || pos+8 > int64(len(full)) {
			return Entry{}, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "entry offset out of range"}
		}
		size := binary.LittleEndian.Uint16(full[pos : pos+2])
		entryFlags := binary.LittleEndian.Uint16(full[pos+2 : pos+4])
		key := binary.LittleEndian.Uint32(full[pos+4 : pos+8])
		e := Entry{Present: true, Flags: entryFlags, Key: key}
		p := pos + int64(size)
		if entryFlags&EntryFlagComplex == 0 {
			var v ResourceValue
			if _, err := v.UnmarshalBinary(full[p:]); err != nil {
				return Entry{}, err
			}
			e.Value = v
		} else {
			if p+8 > int64(len(full)) {
				return Entry{}, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "truncated complex entry"}
			}
			e.Parent = ResourceID(binary.LittleEndian.Uint32(full[p : p+4]))
			count := binary.LittleEndian.Uint32(full[p+4 : p+8])
			p += 8
			e.Map = make([]MapEntry, count)
			for i := range e.Map {
				if p+4+ValueSize > int64(len(full)) {
					return Entry{}, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "truncated complex entry map"}
				}
				name := binary.LittleEndian.Uint32(full[p : p+4])
				var v ResourceValue
				if _, err := v.UnmarshalBinary(full[p+4:]); err != nil {
					return Entry{}, err
				}
				e.Map[i] = MapEntry{Name: name, Value: v}
				p += 4 + ValueSize
			}
		}
		return e, nil
	}

	if c.Sparse {
		n := (offArrayEnd - offArrayStart) / 4
		for i := 0; i < n; i++ {
			p := offArrayStart + i*4
			idx := binary.LittleEndian.Uint16(full[p : p+2])
			word := binary.LittleEndian.Uint16(full[p+2 : p+4])
			if int(idx) >= len(c.Entries) {
				return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: fmt.Sprintf("sparse entry index %d out of range", idx)}
			}
			e, err := readEntry(uint32(word) * 4)
			if err != nil {
				return nil, err
			}
			c.Entries[idx] = e
		}
	} else {
		for i := uint32(0); i < entryCount; i++ {
			p := offArrayStart + int(i)*4
			if p+4 > len(full) {
				return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableType, Msg: "entry offset array overruns chunk"}
			}
			off := binary.LittleEndian.Uint32(full[p : p+4])
			if off == noEntry {
				continue
			}
			e, err := readEntry(off)
			if err != nil {
				return nil, err
			}
			c.Entries[i] = e
		}
	}

	return c, nil
}

func (c *TypeChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	cfgBytes := c.Config.Marshal()
	headerSize := align4(typeFixedHeaderSize + len(cfgBytes))

	var entryBlob []byte
	var offsets []uint32
	if !c.Sparse {
		offsets = entryOffsetPool.Get(len(c.Entries))[:0]
	}
	var sparsePairs [][2]uint16
	for i, e := range c.Entries {
		if !e.Present {
			if !c.Sparse {
				offsets = append(offsets, noEntry)
			}
			continue
		}
		flags := e.Flags
		if opts.PrivateResources {
			flags &^= EntryFlagPublic
		}
		off := uint32(len(entryBlob))
		var hdr [8]byte
		size := uint16(8)
		binary.LittleEndian.PutUint16(hdr[0:2], size)
		binary.LittleEndian.PutUint16(hdr[2:4], flags)
		binary.LittleEndian.PutUint32(hdr[4:8], e.Key)
		entryBlob = append(entryBlob, hdr[:]...)
		if flags&EntryFlagComplex == 0 {
			vb, err := e.Value.MarshalBinary()
			if err != nil {
				return nil, err
			}
			entryBlob = append(entryBlob, vb...)
		} else {
			var pb [8]byte
			binary.LittleEndian.PutUint32(pb[0:4], uint32(e.Parent))
			binary.LittleEndian.PutUint32(pb[4:8], uint32(len(e.Map)))
			entryBlob = append(entryBlob, pb[:]...)
			for _, m := range e.Map {
				var nb [4]byte
				binary.LittleEndian.PutUint32(nb[:], m.Name)
				entryBlob = append(entryBlob, nb[:]...)
				vb, err := m.Value.MarshalBinary()
				if err != nil {
					return nil, err
				}
				entryBlob = append(entryBlob, vb...)
			}
		}
		if c.Sparse {
			if off%4 != 0 {
				return nil, &InvariantViolationError{Msg: fmt.Sprintf("sparse entry offset 0x%x is not a multiple of 4", off)}
			}
			sparsePairs = append(sparsePairs, [2]uint16{uint16(i), uint16(off / 4)})
		} else {
			offsets = append(offsets, off)
		}
	}

	var offArray []byte
	if c.Sparse {
		for _, pr := range sparsePairs {
			var w [4]byte
			binary.LittleEndian.PutUint16(w[0:2], pr[0])
			binary.LittleEndian.PutUint16(w[2:4], pr[1])
			offArray = append(offArray, w[:]...)
		}
	} else {
		for _, off := range offsets {
			var w [4]byte
			binary.LittleEndian.PutUint32(w[:], off)
			offArray = append(offArray, w[:]...)
		}
		entryOffsetPool.Put(offsets)
	}

	entriesStart := align4(headerSize + len(offArray))

	out := make([]byte, typeFixedHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindTableType))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(headerSize))
	out[0x08] = c.ID
	var flags uint8
	if c.Sparse {
		flags |= typeFlagSparse
	}
	out[0x09] = flags
	binary.LittleEndian.PutUint32(out[0x0C:0x10], uint32(len(c.Entries)))
	binary.LittleEndian.PutUint32(out[0x10:0x14], uint32(entriesStart))

	out = append(out, cfgBytes...)
	out = padTo(out, headerSize)
	out = append(out, offArray...)
	out = padTo(out, entriesStart)
	out = append(out, entryBlob...)
	out = padTo(out, align4(len(out)))

	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

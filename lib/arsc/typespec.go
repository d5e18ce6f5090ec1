// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"

	"github.com/arscrec/arscrec/lib/binstruct"
)

// SpecPublic marks a resource entry (by its position in a TypeSpec's
// Masks slice) as part of the package's public API.
const SpecPublic = uint32(0x40000000)

const typeSpecHeaderSize = 0x10

// TypeSpecChunk is a TABLE_TYPE_SPEC chunk: one config-difference mask
// per entry of a resource type, shared by every TABLE_TYPE chunk for
// that same type id.
type TypeSpecChunk struct {
	ID uint8

	// Masks holds one bitmask per entry: which Config axes vary across
	// the type's configurations for that entry, plus the SpecPublic
	// flag bit.
	Masks []uint32
}

func (c *TypeSpecChunk) Kind() Kind { return KindTableTypeSpec }

func parseTypeSpec(full []byte, chunkOffset int64) (*TypeSpecChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableTypeSpec, Msg: err.Error()}
	}
	if len(full) < typeSpecHeaderSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableTypeSpec, Msg: "truncated type-spec header"}
	}
	id := full[0x08]
	entryCount := binary.LittleEndian.Uint32(full[0x0C:0x10])

	need := typeSpecHeaderSize + int(entryCount)*4
	if len(full) < need {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTableTypeSpec, Msg: "type-spec mask array overruns chunk"}
	}

	masks := make([]uint32, entryCount)
	for i := range masks {
		masks[i] = binary.LittleEndian.Uint32(full[typeSpecHeaderSize+i*4:])
	}
	return &TypeSpecChunk{ID: id, Masks: masks}, nil
}

func (c *TypeSpecChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	out := make([]byte, typeSpecHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindTableTypeSpec))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(typeSpecHeaderSize))
	out[0x08] = c.ID
	binary.LittleEndian.PutUint32(out[0x0C:0x10], uint32(len(c.Masks)))

	for _, mask := range c.Masks {
		if opts.PrivateResources {
			mask &^= SpecPublic
		}
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], mask)
		out = append(out, w[:]...)
	}
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

// IsPublic reports whether entry i of this type is public.
func (c *TypeSpecChunk) IsPublic(i int) bool {
	return i < len(c.Masks) && c.Masks[i]&SpecPublic != 0
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/arscrec/arscrec/lib/binstruct"
)

const packageNameUnits = 128
const packageHeaderSizeBase = 8 + 4 + packageNameUnits*2 + 4 + 4 + 4 + 4
const packageHeaderSizeWithTypeIDOffset = packageHeaderSizeBase + 4

// PackageChunk is a TABLE_PACKAGE chunk: one app/library's resources —
// its type-name and key-name string pools, and its TypeSpec/Type
// chunks, in original parse order.
type PackageChunk struct {
	ID             uint32
	Name           string
	LastPublicType uint32
	LastPublicKey  uint32

	// HasTypeIDOffset records whether the (newer, optional)
	// typeIdOffset header field was present at parse time, so an
	// untouched package round-trips at its original header size.
	HasTypeIDOffset bool
	TypeIDOffset    uint32

	Children []*Chunk
}

func (c *PackageChunk) Kind() Kind { return KindTablePackage }

func parsePackage(full []byte, chunkOffset int64) (*PackageChunk, error) {
	var meta metaHeader
	if _, err := binstruct.Unmarshal(full, &meta); err != nil {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTablePackage, Msg: err.Error()}
	}
	if len(full) < packageHeaderSizeBase {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTablePackage, Msg: "truncated package header"}
	}

	id := binary.LittleEndian.Uint32(full[0x08:0x0C])
	nameUnits := make([]uint16, packageNameUnits)
	for i := range nameUnits {
		nameUnits[i] = binary.LittleEndian.Uint16(full[0x0C+i*2:])
	}
	for i, u := range nameUnits {
		if u == 0 {
			nameUnits = nameUnits[:i]
			break
		}
	}
	off := 0x0C + packageNameUnits*2
	lastPublicType := binary.LittleEndian.Uint32(full[off+4 : off+8])
	lastPublicKey := binary.LittleEndian.Uint32(full[off+12 : off+16])

	c := &PackageChunk{
		ID:             id,
		Name:           string(utf16.Decode(nameUnits)),
		LastPublicType: lastPublicType,
		LastPublicKey:  lastPublicKey,
	}
	if int(meta.HeaderSize) >= packageHeaderSizeWithTypeIDOffset {
		c.HasTypeIDOffset = true
		c.TypeIDOffset = binary.LittleEndian.Uint32(full[off+16 : off+20])
	}

	children, err := ParseChunkSequence(full[meta.HeaderSize:], chunkOffset+int64(meta.HeaderSize))
	if err != nil {
		return nil, err
	}
	for _, ch := range children {
		switch ch.Body.Kind() {
		case KindStringPool, KindTableTypeSpec, KindTableType:
		default:
			return nil, &UnknownKindInsideKnownContainerError{Offset: ch.Offset, Container: KindTablePackage, Child: ch.Body.Kind()}
		}
	}
	c.Children = children
	return c, nil
}

func (c *PackageChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	headerSize := packageHeaderSizeBase
	if c.HasTypeIDOffset {
		headerSize = packageHeaderSizeWithTypeIDOffset
	}

	body, err := MarshalChunkSequence(c.Children, opts)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindTablePackage))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(headerSize))
	binary.LittleEndian.PutUint32(out[0x08:0x0C], c.ID)

	units := utf16.Encode([]rune(c.Name))
	if len(units) > packageNameUnits {
		units = units[:packageNameUnits]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[0x0C+i*2:], u)
	}

	off := 0x0C + packageNameUnits*2
	// typeStrings/keyStrings offsets are where the first and second
	// string-pool children land, from this chunk's start (0 if absent).
	var poolOffsets [2]uint32
	found := 0
	for p := 0; p+metaHeaderSize <= len(body) && found < 2; {
		if Kind(binary.LittleEndian.Uint16(body[p:p+2])) == KindStringPool {
			poolOffsets[found] = uint32(headerSize + p)
			found++
		}
		size := int(binary.LittleEndian.Uint32(body[p+4 : p+8]))
		if size < metaHeaderSize {
			break
		}
		p += size
	}
	binary.LittleEndian.PutUint32(out[off:off+4], poolOffsets[0])
	binary.LittleEndian.PutUint32(out[off+4:off+8], c.LastPublicType)
	binary.LittleEndian.PutUint32(out[off+8:off+12], poolOffsets[1])
	binary.LittleEndian.PutUint32(out[off+12:off+16], c.LastPublicKey)
	if c.HasTypeIDOffset {
		binary.LittleEndian.PutUint32(out[off+16:off+20], c.TypeIDOffset)
	}

	out = append(out, body...)
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

// TypeStringPool returns the package's type-name string pool.
func (c *PackageChunk) TypeStringPool() *StringPoolChunk {
	for _, ch := range c.Children {
		if sp, ok := ch.Body.(*StringPoolChunk); ok {
			return sp
		}
	}
	return nil
}

// KeyStringPool returns the package's resource-key-name string pool.
func (c *PackageChunk) KeyStringPool() *StringPoolChunk {
	found := 0
	for _, ch := range c.Children {
		if sp, ok := ch.Body.(*StringPoolChunk); ok {
			found++
			if found == 2 {
				return sp
			}
		}
	}
	return nil
}

// TypesByID returns every TypeChunk for the given type id, and its
// paired TypeSpecChunk (if present), in the order they appear.
func (c *PackageChunk) TypesByID(id uint8) (spec *TypeSpecChunk, types []*TypeChunk) {
	for _, ch := range c.Children {
		switch b := ch.Body.(type) {
		case *TypeSpecChunk:
			if b.ID == id {
				spec = b
			}
		case *TypeChunk:
			if b.ID == id {
				types = append(types, b)
			}
		}
	}
	return spec, types
}

// DeleteKeys removes the given key-string indices from the key pool
// and cascades the resulting index shift into every Entry.Key field of
// every TypeChunk in this package. Per §4.6, an entry whose key-index
// maps to -1 is implicitly deleted (replaced by its null form); a type
// chunk left with no present entries is itself removed from the
// package, and its matching type-spec chunk is removed too, provided no
// other surviving type chunk still shares its id.
func (c *PackageChunk) DeleteKeys(idxs []uint32) error {
	keyPool := c.KeyStringPool()
	if keyPool == nil {
		return &InvariantViolationError{Msg: "package has no key string pool"}
	}
	remap, err := keyPool.DeleteStrings(idxs)
	if err != nil {
		return err
	}

	emptied := make(map[uint8]bool)
	var kept []*Chunk
	for _, ch := range c.Children {
		t, ok := ch.Body.(*TypeChunk)
		if !ok {
			kept = append(kept, ch)
			continue
		}
		anyPresent := false
		for i := range t.Entries {
			e := &t.Entries[i]
			if !e.Present {
				continue
			}
			if int(e.Key) >= len(remap) || remap[e.Key] < 0 {
				*e = Entry{}
				continue
			}
			e.Key = uint32(remap[e.Key])
			anyPresent = true
		}
		if anyPresent {
			kept = append(kept, ch)
		} else {
			emptied[t.ID] = true
		}
	}

	if len(emptied) == 0 {
		return nil
	}
	stillUsed := make(map[uint8]bool, len(kept))
	for _, ch := range kept {
		if t, ok := ch.Body.(*TypeChunk); ok {
			stillUsed[t.ID] = true
		}
	}
	c.Children = kept[:0]
	for _, ch := range kept {
		if spec, ok := ch.Body.(*TypeSpecChunk); ok && emptied[spec.ID] && !stillUsed[spec.ID] {
			continue
		}
		c.Children = append(c.Children, ch)
	}
	return nil
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
)

const tableHeaderSize = 0x0C

// TableChunk is the root TABLE chunk of a resources.arsc file: a
// global value string pool shared by every package, followed by one
// PackageChunk per app/library package (and, rarely, TABLE_LIBRARY
// chunks recording shared-library links), in original parse order.
type TableChunk struct {
	Children []*Chunk
}

func (c *TableChunk) Kind() Kind { return KindTable }

func parseTable(full []byte, chunkOffset int64) (*TableChunk, error) {
	if len(full) < tableHeaderSize {
		return nil, &MalformedInputError{Offset: chunkOffset, Kind: KindTable, Msg: "truncated resource table header"}
	}
	headerSize := binary.LittleEndian.Uint16(full[0x2:0x4])
	children, err := ParseChunkSequence(full[headerSize:], chunkOffset+int64(headerSize))
	if err != nil {
		return nil, err
	}
	for _, ch := range children {
		switch ch.Body.Kind() {
		case KindStringPool, KindTablePackage, KindTableLibrary:
		default:
			return nil, &UnknownKindInsideKnownContainerError{Offset: ch.Offset, Container: KindTable, Child: ch.Body.Kind()}
		}
	}
	return &TableChunk{Children: children}, nil
}

func (c *TableChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	body, err := MarshalChunkSequence(c.Children, opts)
	if err != nil {
		return nil, err
	}
	packageCount := uint32(0)
	for _, ch := range c.Children {
		if _, ok := ch.Body.(*PackageChunk); ok {
			packageCount++
		}
	}
	out := make([]byte, tableHeaderSize)
	binary.LittleEndian.PutUint16(out[0x0:0x2], uint16(KindTable))
	binary.LittleEndian.PutUint16(out[0x2:0x4], uint16(tableHeaderSize))
	binary.LittleEndian.PutUint32(out[0x08:0x0C], packageCount)
	out = append(out, body...)
	binary.LittleEndian.PutUint32(out[0x4:0x8], uint32(len(out)))
	return out, nil
}

// GlobalStringPool returns the table's shared value string pool.
func (c *TableChunk) GlobalStringPool() *StringPoolChunk {
	for _, ch := range c.Children {
		if sp, ok := ch.Body.(*StringPoolChunk); ok {
			return sp
		}
	}
	return nil
}

// Packages returns every package in this table, in parse order.
func (c *TableChunk) Packages() []*PackageChunk {
	var pkgs []*PackageChunk
	for _, ch := range c.Children {
		if p, ok := ch.Body.(*PackageChunk); ok {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

// PackageByID returns the package with the given id, or nil.
func (c *TableChunk) PackageByID(id uint8) *PackageChunk {
	for _, p := range c.Packages() {
		if uint8(p.ID) == id {
			return p
		}
	}
	return nil
}

// Resolve looks up a resource entry by id, returning its owning
// package, the first of the type's TypeChunks (in package order) that
// defines the entry, and a copy of that Entry. There is no way to ask
// for a particular configuration; later TypeChunks are not consulted
// once one matches.
func (c *TableChunk) Resolve(id ResourceID) (pkg *PackageChunk, typ *TypeChunk, entry *Entry, err error) {
	pkgID, typID, entryIdx := id.Split()
	pkg = c.PackageByID(pkgID)
	if pkg == nil {
		return nil, nil, nil, &InvariantViolationError{Msg: "no package with that id"}
	}
	_, types := pkg.TypesByID(typID)
	for _, t := range types {
		if int(entryIdx) < len(t.Entries) && t.Entries[entryIdx].Present {
			e := t.Entries[entryIdx]
			return pkg, t, &e, nil
		}
	}
	return pkg, nil, nil, &InvariantViolationError{Msg: "no configuration of that type defines the requested entry"}
}

// DeleteStrings removes the given indices from the table's global
// string pool and cascades the resulting index shift into every
// string-typed resource value (simple or complex/bag) across every
// package. Per §4.7, a simple entry whose value was a string now
// pointing at a deleted index becomes null rather than being removed
// from its type chunk — a sibling configuration's entry may depend on
// the slot still existing.
func (c *TableChunk) DeleteStrings(idxs []uint32) error {
	pool := c.GlobalStringPool()
	if pool == nil {
		return &InvariantViolationError{Msg: "table has no global string pool"}
	}
	remap, err := pool.DeleteStrings(idxs)
	if err != nil {
		return err
	}

	apply := func(v *ResourceValue) {
		if v.Type != ValueString {
			return
		}
		if int(v.Data) >= len(remap) || remap[v.Data] < 0 {
			*v = NullValue
			return
		}
		v.Data = uint32(remap[v.Data])
	}

	for _, pkg := range c.Packages() {
		for _, ch := range pkg.Children {
			t, ok := ch.Body.(*TypeChunk)
			if !ok {
				continue
			}
			for i := range t.Entries {
				e := &t.Entries[i]
				if !e.Present {
					continue
				}
				if !e.IsComplex() {
					apply(&e.Value)
					continue
				}
				for j := range e.Map {
					apply(&e.Map[j].Value)
				}
			}
		}
	}
	return nil
}

// RemapResourceReferences rewrites every REFERENCE/DYNAMIC_REFERENCE
// entry value (simple or within a complex entry's map) across every
// package whose Data names a resource id present in m, substituting the
// mapped id. It returns the number of values it rewrote.
func (c *TableChunk) RemapResourceReferences(m map[ResourceID]ResourceID) int {
	n := 0
	apply := func(v *ResourceValue) {
		if v.Type != ValueReference && v.Type != ValueDynamicReference {
			return
		}
		if to, ok := m[ResourceID(v.Data)]; ok {
			v.Data = uint32(to)
			n++
		}
	}
	for _, pkg := range c.Packages() {
		for _, ch := range pkg.Children {
			t, ok := ch.Body.(*TypeChunk)
			if !ok {
				continue
			}
			for i := range t.Entries {
				e := &t.Entries[i]
				if !e.Present {
					continue
				}
				if !e.IsComplex() {
					apply(&e.Value)
					continue
				}
				for j := range e.Map {
					apply(&e.Map[j].Value)
				}
			}
		}
	}
	return n
}

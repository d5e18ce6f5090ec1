// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"fmt"

	"github.com/arscrec/arscrec/lib/binstruct"
)

// ChunkBody is implemented by every concrete chunk payload type
// (StringPoolChunk, TableChunk, XMLChunk, PackageChunk, TypeChunk,
// TypeSpecChunk, LibraryChunk, the XML node chunks, and OpaqueChunk for
// anything this package doesn't recognize).
type ChunkBody interface {
	Kind() Kind
	MarshalBody(opts SerializeOptions) ([]byte, error)
}

// Chunk pairs a parsed body with the file offset it was read from, for
// error reporting.
type Chunk struct {
	Offset int64
	Body   ChunkBody
}

func (c *Chunk) Marshal(opts SerializeOptions) ([]byte, error) {
	return c.Body.MarshalBody(opts)
}

// ParseChunk reads one chunk (header, body, and any chunk-specific
// trailing padding up to its declared TotalSize) from the start of
// dat. It returns the parsed chunk and the number of bytes consumed.
func ParseChunk(dat []byte, offset int64) (*Chunk, int, error) {
	if len(dat) < metaHeaderSize {
		return nil, 0, &MalformedInputError{Offset: offset, Msg: fmt.Sprintf("need %d bytes for chunk header, have %d", metaHeaderSize, len(dat))}
	}
	var meta metaHeader
	if _, err := binstruct.Unmarshal(dat, &meta); err != nil {
		return nil, 0, &MalformedInputError{Offset: offset, Msg: err.Error()}
	}
	if meta.HeaderSize < metaHeaderSize {
		return nil, 0, &MalformedInputError{Offset: offset, Kind: meta.Kind, Msg: fmt.Sprintf("header size %d smaller than the fixed %d-byte chunk prefix", meta.HeaderSize, metaHeaderSize)}
	}
	if meta.TotalSize < uint32(meta.HeaderSize) {
		return nil, 0, &MalformedInputError{Offset: offset, Kind: meta.Kind, Msg: fmt.Sprintf("total size %d smaller than header size %d", meta.TotalSize, meta.HeaderSize)}
	}
	if int64(meta.TotalSize) > int64(len(dat)) {
		return nil, 0, &MalformedInputError{Offset: offset, Kind: meta.Kind, Msg: fmt.Sprintf("declared size %d overruns available %d bytes", meta.TotalSize, len(dat))}
	}
	full := dat[:meta.TotalSize]

	var body ChunkBody
	var err error
	switch meta.Kind {
	case KindStringPool:
		body, err = parseStringPool(full, offset)
	case KindTable:
		body, err = parseTable(full, offset)
	case KindXML:
		body, err = parseXMLTree(full, offset)
	case KindXMLNSStart:
		body, err = parseXMLNamespace(full, offset, false)
	case KindXMLNSEnd:
		body, err = parseXMLNamespace(full, offset, true)
	case KindXMLElemStart:
		body, err = parseXMLElementStart(full, offset)
	case KindXMLElemEnd:
		body, err = parseXMLElementEnd(full, offset)
	case KindXMLCData:
		body, err = parseXMLCData(full, offset)
	case KindXMLResourceMap:
		body, err = parseXMLResourceMap(full, offset)
	case KindTablePackage:
		body, err = parsePackage(full, offset)
	case KindTableType:
		body, err = parseType(full, offset)
	case KindTableTypeSpec:
		body, err = parseTypeSpec(full, offset)
	case KindTableLibrary:
		body, err = parseLibrary(full, offset)
	default:
		body, err = parseOpaque(full, meta.Kind, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	return &Chunk{Offset: offset, Body: body}, int(meta.TotalSize), nil
}

// ParseChunkSequence parses a flat run of sibling chunks filling the
// whole of dat, as found directly inside a resource table, a package,
// or an XML tree's payload.
func ParseChunkSequence(dat []byte, baseOffset int64) ([]*Chunk, error) {
	var chunks []*Chunk
	pos := 0
	for pos < len(dat) {
		c, n, err := ParseChunk(dat[pos:], baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, &MalformedInputError{Offset: baseOffset + int64(pos), Msg: "zero-length chunk would loop forever"}
		}
		chunks = append(chunks, c)
		pos += n
	}
	return chunks, nil
}

// MarshalChunkSequence serializes chunks back-to-back in order.
func MarshalChunkSequence(chunks []*Chunk, opts SerializeOptions) ([]byte, error) {
	var out []byte
	for i, c := range chunks {
		b, err := c.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("chunk %d (%v): %w", i, c.Body.Kind(), err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

// OpaqueChunk is a chunk whose Kind this package doesn't understand.
// Its bytes, header included, are kept verbatim so that a tree holding
// one still round-trips exactly.
type OpaqueChunk struct {
	ActualKind Kind
	Raw        []byte
}

func (c *OpaqueChunk) Kind() Kind { return c.ActualKind }

func (c *OpaqueChunk) MarshalBody(opts SerializeOptions) ([]byte, error) {
	return c.Raw, nil
}

func parseOpaque(full []byte, kind Kind, chunkOffset int64) (*OpaqueChunk, error) {
	return &OpaqueChunk{ActualKind: kind, Raw: append([]byte(nil), full...)}, nil
}

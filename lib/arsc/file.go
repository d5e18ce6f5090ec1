// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

// File is a parsed compiled-resource file: resources.arsc,
// AndroidManifest.xml, or a compiled res/*.xml, represented as the
// ordered sequence of top-level chunks it contains. In practice this
// is always exactly one chunk (a TABLE or an XML), but the format
// itself doesn't forbid trailing sibling chunks, so they're preserved
// rather than rejected.
type File struct {
	Chunks []*Chunk
}

// ParseFile parses a whole compiled-resource file.
func ParseFile(dat []byte) (*File, error) {
	chunks, err := ParseChunkSequence(dat, 0)
	if err != nil {
		return nil, err
	}
	return &File{Chunks: chunks}, nil
}

// Marshal re-serializes the file under opts. Under NoneOptions, for a
// File produced by ParseFile without any mutation, this reproduces the
// original bytes exactly.
func (f *File) Marshal(opts SerializeOptions) ([]byte, error) {
	return MarshalChunkSequence(f.Chunks, opts)
}

// Table returns the file's root resource table, if it has one.
func (f *File) Table() *TableChunk {
	for _, c := range f.Chunks {
		if t, ok := c.Body.(*TableChunk); ok {
			return t
		}
	}
	return nil
}

// XML returns the file's root XML tree, if it has one.
func (f *File) XML() *XMLChunk {
	for _, c := range f.Chunks {
		if x, ok := c.Body.(*XMLChunk); ok {
			return x
		}
	}
	return nil
}

// DeleteStrings removes the given indices from whichever string pool
// this file's root chunk owns (a table's global pool, or an XML tree's
// document pool) and cascades the index shift through every reference
// to it.
func (f *File) DeleteStrings(idxs []uint32) error {
	if t := f.Table(); t != nil {
		return t.DeleteStrings(idxs)
	}
	if x := f.XML(); x != nil {
		return x.DeleteStrings(idxs)
	}
	return &InvariantViolationError{Msg: "file has no table or XML root chunk to delete strings from"}
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/datawire/dlib/dlog"

	"github.com/arscrec/arscrec/lib/arsc"
)

// readFile parses the compiled-resource file at filename.
func readFile(ctx context.Context, filename string) (*arsc.File, error) {
	dlog.Infof(ctx, "reading %q...", filename)
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	f, err := arsc.ParseFile(raw)
	if err != nil {
		return nil, err
	}
	dlog.Infof(ctx, "... parsed %d top-level chunk(s)", len(f.Chunks))
	return f, nil
}

// writeFile re-serializes f under opts and writes it to filename.
func writeFile(ctx context.Context, filename string, f *arsc.File, opts arsc.SerializeOptions) error {
	out, err := f.Marshal(opts)
	if err != nil {
		return err
	}
	dlog.Infof(ctx, "writing %d bytes to %q...", len(out), filename)
	return os.WriteFile(filename, out, 0o644) //nolint:gomnd
}

// readJSONFile decodes a JSON document of type T from filename, using
// lowmemjson so that large plan/dump documents don't need to be held
// twice in memory (once as bytes, once as the decoded tree).
func readJSONFile[T any](filename string) (T, error) {
	var zero T
	fh, err := os.Open(filename)
	if err != nil {
		return zero, err
	}
	defer fh.Close()

	var ret T
	if err := lowmemjson.DecodeThenEOF(bufio.NewReader(fh), &ret); err != nil {
		return zero, err
	}
	return ret, nil
}

// writeJSONFile encodes obj as indented JSON to w.
func writeJSONFile(w io.Writer, obj any) (err error) {
	buffer := bufio.NewWriter(w)
	defer func() {
		if _err := buffer.Flush(); err == nil && _err != nil {
			err = _err
		}
	}()
	return lowmemjson.Encode(&lowmemjson.ReEncoder{
		Out: buffer,

		Indent:                "\t",
		ForceTrailingNewlines: true,
	}, obj)
}

// marshalJSON renders obj as an indented JSON byte slice rather than a
// direct stream. Nothing in this command calls it at present.
func marshalJSON(obj any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONFile(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

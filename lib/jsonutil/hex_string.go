// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package jsonutil provides utilities for implementing the interfaces
// consumed by the "git.lukeshu.com/go/lowmemjson" package.
package jsonutil

import (
	"io"

	"git.lukeshu.com/go/lowmemjson"
)

func EncodeHexString[T ~[]byte | ~string](w io.Writer, str T) error {
	const hextable = "0123456789abcdef"
	var buf [2]byte
	buf[0] = '"'
	if _, err := w.Write(buf[:1]); err != nil {
		return err
	}
	for i := 0; i < len(str); i++ {
		buf[0] = hextable[str[i]>>4]
		buf[1] = hextable[str[i]&0x0f]
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	buf[0] = '"'
	if _, err := w.Write(buf[:1]); err != nil {
		return err
	}
	return nil
}

func DecodeHexString(r io.RuneScanner, dst io.ByteWriter) error {
	dec := &hexDecoder{dst: dst}
	if err := lowmemjson.DecodeString(r, dec); err != nil {
		return err
	}
	return dec.Close()
}

// EncodeSplitHexString is like EncodeHexString, but breaks the string
// into lineLen-digit lines (as `\n` escapes within the single JSON
// string) so that a large binary blob doesn't dump as one unreadable
// line.
func EncodeSplitHexString[T ~[]byte | ~string](w io.Writer, str T, lineLen int) error {
	const hextable = "0123456789abcdef"
	if _, err := w.Write([]byte{'"'}); err != nil {
		return err
	}
	col := 0
	for i := 0; i < len(str); i++ {
		if col > 0 && col%lineLen == 0 {
			if _, err := w.Write([]byte{'\\', 'n'}); err != nil {
				return err
			}
		}
		buf := [2]byte{hextable[str[i]>>4], hextable[str[i]&0x0f]}
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
		col += 2
	}
	_, err := w.Write([]byte{'"'})
	return err
}

// splitHexDecoder is a hexDecoder that ignores the line breaks
// inserted by EncodeSplitHexString.
type splitHexDecoder struct {
	hexDecoder
}

func (d *splitHexDecoder) WriteRune(r rune) (int, error) {
	if r == '\n' || r == '\r' {
		return 1, nil
	}
	return d.hexDecoder.WriteRune(r)
}

// DecodeSplitHexString decodes a JSON string produced by
// EncodeSplitHexString.
func DecodeSplitHexString(r io.RuneScanner, dst io.ByteWriter) error {
	dec := &splitHexDecoder{hexDecoder: hexDecoder{dst: dst}}
	if err := lowmemjson.DecodeString(r, dec); err != nil {
		return err
	}
	return dec.Close()
}

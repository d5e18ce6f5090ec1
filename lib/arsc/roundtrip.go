// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import "bytes"

// RoundTripResult reports the outcome of re-serializing an untouched
// File under NoneOptions and comparing it to the bytes it was parsed
// from, per §8 property #1.
type RoundTripResult struct {
	OK bool

	// FirstDiffOffset is the index of the first byte that differs
	// between the original and re-serialized bytes, valid only when
	// !OK and the lengths matched up to that point.
	FirstDiffOffset int

	OriginalLen   int
	ReserializedLen int
}

// RoundTrip parses raw, re-marshals the result under NoneOptions, and
// reports whether the two byte sequences are identical. It never
// mutates raw.
func RoundTrip(raw []byte) (*RoundTripResult, error) {
	f, err := ParseFile(raw)
	if err != nil {
		return nil, err
	}
	out, err := f.Marshal(NoneOptions)
	if err != nil {
		return nil, err
	}

	res := &RoundTripResult{
		OriginalLen:     len(raw),
		ReserializedLen: len(out),
	}
	if bytes.Equal(raw, out) {
		res.OK = true
		return res, nil
	}
	n := len(raw)
	if len(out) < n {
		n = len(out)
	}
	diff := n
	for i := 0; i < n; i++ {
		if raw[i] != out[i] {
			diff = i
			break
		}
	}
	res.FirstDiffOffset = diff
	return res, nil
}

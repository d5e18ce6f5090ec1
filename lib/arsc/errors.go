// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import "fmt"

// MalformedInputError is returned when the byte stream does not follow
// the chunk format: truncated fields, a declared size that overruns its
// parent, an out-of-range string offset, and so on.
type MalformedInputError struct {
	Offset int64
	Kind   Kind
	Msg    string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: offset=0x%x kind=%v: %s", e.Offset, e.Kind, e.Msg)
}

// UnknownKindInsideKnownContainerError is returned when a container chunk
// (resource table, package, XML tree) holds a direct child whose kind is
// not one of the kinds that container is allowed to hold.
type UnknownKindInsideKnownContainerError struct {
	Offset    int64
	Container Kind
	Child     Kind
}

func (e *UnknownKindInsideKnownContainerError) Error() string {
	return fmt.Sprintf("offset=0x%x: %v chunk cannot contain a %v chunk", e.Offset, e.Container, e.Child)
}

// InvariantViolationError is returned when a mutation or a sanity check
// on already-parsed data would break (or found broken) a structural
// invariant that isn't about the raw bytes themselves: an out-of-range
// package/type/entry id, a sparse-chunk offset not a multiple of 4, a
// remap that still contains a negative index after protection.
type InvariantViolationError struct {
	Msg string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Msg
}

// UnsupportedValueKindError is returned when a ResourceValue's type byte
// is not one of the enumerated kinds in §3.
type UnsupportedValueKindError struct {
	Offset int64
	Type   ValueType
}

func (e *UnsupportedValueKindError) Error() string {
	return fmt.Sprintf("offset=0x%x: unsupported resource value type 0x%02x", e.Offset, uint8(e.Type))
}

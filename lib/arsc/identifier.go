// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import "fmt"

// ResourceID is the packed 32-bit resource identifier 0xPPTTEEEE: a
// 1-based package id, a 1-based type id, and a 0-based entry index.
type ResourceID uint32

// NewResourceID packs (pkg, typ, entry) into a ResourceID, enforcing the
// range constraints from §4.3: pkg and typ fit in a byte, entry fits in
// two bytes.
func NewResourceID(pkg, typ uint32, entry uint32) (ResourceID, error) {
	if pkg > 0xFF {
		return 0, &InvariantViolationError{Msg: fmt.Sprintf("package id 0x%x exceeds 0xFF", pkg)}
	}
	if typ > 0xFF {
		return 0, &InvariantViolationError{Msg: fmt.Sprintf("type id 0x%x exceeds 0xFF", typ)}
	}
	if entry > 0xFFFF {
		return 0, &InvariantViolationError{Msg: fmt.Sprintf("entry index 0x%x exceeds 0xFFFF", entry)}
	}
	return ResourceID(pkg<<24 | typ<<16 | entry), nil
}

// Package returns the 1-based package id.
func (id ResourceID) Package() uint8 { return uint8(id >> 24) }

// Type returns the 1-based type id.
func (id ResourceID) Type() uint8 { return uint8(id >> 16) }

// Entry returns the 0-based entry index.
func (id ResourceID) Entry() uint16 { return uint16(id) }

// Split returns the three packed fields at once.
func (id ResourceID) Split() (pkg, typ uint8, entry uint16) {
	return id.Package(), id.Type(), id.Entry()
}

func (id ResourceID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

func (id ResourceID) IsNull() bool { return id == 0 }

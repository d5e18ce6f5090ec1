// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import (
	"encoding/binary"
	"fmt"
)

// ValueType is the type tag of a ResourceValue.
type ValueType uint8

const (
	ValueNull             = ValueType(0x00)
	ValueReference        = ValueType(0x01)
	ValueAttribute        = ValueType(0x02)
	ValueString           = ValueType(0x03)
	ValueFloat            = ValueType(0x04)
	ValueDimension        = ValueType(0x05)
	ValueFraction         = ValueType(0x06)
	ValueDynamicReference = ValueType(0x07)
	ValueDynamicAttribute = ValueType(0x08)
	ValueIntDec           = ValueType(0x10)
	ValueIntHex           = ValueType(0x11)
	ValueIntBoolean       = ValueType(0x12)
	ValueIntColorARGB8    = ValueType(0x1c)
	ValueIntColorRGB8     = ValueType(0x1d)
	ValueIntColorARGB4    = ValueType(0x1e)
	ValueIntColorRGB4     = ValueType(0x1f)
)

var valueTypeNames = map[ValueType]string{
	ValueNull:             "null",
	ValueReference:        "reference",
	ValueAttribute:        "attribute",
	ValueString:           "string",
	ValueFloat:            "float",
	ValueDimension:        "dimension",
	ValueFraction:         "fraction",
	ValueDynamicReference: "dynamic-reference",
	ValueDynamicAttribute: "dynamic-attribute",
	ValueIntDec:           "int-dec",
	ValueIntHex:           "int-hex",
	ValueIntBoolean:       "int-boolean",
	ValueIntColorARGB8:    "int-color-argb8",
	ValueIntColorRGB8:     "int-color-rgb8",
	ValueIntColorARGB4:    "int-color-argb4",
	ValueIntColorRGB4:     "int-color-rgb4",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
}

func (t ValueType) valid() bool {
	_, ok := valueTypeNames[t]
	return ok
}

// ValueSize is the on-disk size of a ResourceValue record.
const ValueSize = 8

// ResourceValue is the fixed 8-byte typed-value record described in §3.
//
// Size and Reserved are round-tripped verbatim rather than being
// recomputed, since some producers emit a non-standard struct size or
// non-zero padding byte that the rest of the ecosystem ignores but that
// byte-exact round-trip must preserve.
type ResourceValue struct {
	Size     uint16
	Reserved uint8
	Type     ValueType
	Data     uint32
}

// NullValue is the canonical empty resource value.
var NullValue = ResourceValue{Size: ValueSize, Type: ValueNull, Data: 0}

func (v ResourceValue) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ValueSize)
	binary.LittleEndian.PutUint16(buf[0:2], v.Size)
	buf[2] = v.Reserved
	buf[3] = byte(v.Type)
	binary.LittleEndian.PutUint32(buf[4:8], v.Data)
	return buf, nil
}

func (v *ResourceValue) UnmarshalBinary(dat []byte) (int, error) {
	if len(dat) < ValueSize {
		return 0, fmt.Errorf("resource value: need %d bytes, have %d", ValueSize, len(dat))
	}
	v.Size = binary.LittleEndian.Uint16(dat[0:2])
	v.Reserved = dat[2]
	v.Type = ValueType(dat[3])
	v.Data = binary.LittleEndian.Uint32(dat[4:8])
	if !v.Type.valid() {
		return 0, &UnsupportedValueKindError{Type: v.Type}
	}
	return ValueSize, nil
}

func (v ResourceValue) BinaryStaticSize() int { return ValueSize }

// IsString reports whether this value's Data is an index into the owning
// resource table's string pool.
func (v ResourceValue) IsString() bool { return v.Type == ValueString }

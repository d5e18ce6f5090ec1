// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package arsc implements the Android compiled-resource chunk format:
// resources.arsc, AndroidManifest.xml, and compiled res/*.xml.
package arsc

import (
	"fmt"

	"github.com/arscrec/arscrec/lib/binstruct"
)

// Kind identifies the shape of a Chunk's payload.
type Kind uint16

const (
	KindStringPool    = Kind(0x0001)
	KindTable         = Kind(0x0002)
	KindXML           = Kind(0x0003)
	KindXMLNSStart    = Kind(0x0100)
	KindXMLNSEnd      = Kind(0x0101)
	KindXMLElemStart  = Kind(0x0102)
	KindXMLElemEnd    = Kind(0x0103)
	KindXMLCData      = Kind(0x0104)
	KindXMLResourceMap = Kind(0x0180)
	KindTablePackage  = Kind(0x0200)
	KindTableType     = Kind(0x0201)
	KindTableTypeSpec = Kind(0x0202)
	KindTableLibrary  = Kind(0x0203)
)

var kindNames = map[Kind]string{
	KindStringPool:     "STRING_POOL",
	KindTable:          "TABLE",
	KindXML:            "XML",
	KindXMLNSStart:     "XML_START_NAMESPACE",
	KindXMLNSEnd:       "XML_END_NAMESPACE",
	KindXMLElemStart:   "XML_START_ELEMENT",
	KindXMLElemEnd:     "XML_END_ELEMENT",
	KindXMLCData:       "XML_CDATA",
	KindXMLResourceMap: "XML_RESOURCE_MAP",
	KindTablePackage:   "TABLE_PACKAGE",
	KindTableType:      "TABLE_TYPE",
	KindTableTypeSpec:  "TABLE_TYPE_SPEC",
	KindTableLibrary:   "TABLE_LIBRARY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%04x)", uint16(k))
}

// isXMLNode reports whether this kind appears in the body of a KindXML
// container as one of its node-stream siblings.
func (k Kind) isXMLNode() bool {
	return k&0x0100 != 0 && k != KindXMLResourceMap
}

// metaHeader is the 8-byte prefix shared by every chunk.
type metaHeader struct {
	Kind          Kind   `bin:"off=0x0, siz=0x2"`
	HeaderSize    uint16 `bin:"off=0x2, siz=0x2"`
	TotalSize     uint32 `bin:"off=0x4, siz=0x4"`
	binstruct.End `bin:"off=0x8"`
}

const metaHeaderSize = 8

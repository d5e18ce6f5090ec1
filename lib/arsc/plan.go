// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

import "fmt"

// RenameStringOp overwrites the string at Index in place.
type RenameStringOp struct {
	Index uint32 `json:"index"`
	To    string `json:"to"`
}

// RenameKeyOp overwrites the key-pool string at Index, within the
// package identified by PackageID, in place.
type RenameKeyOp struct {
	PackageID uint32 `json:"package_id"`
	Index     uint32 `json:"index"`
	To        string `json:"to"`
}

// DeleteKeysOp deletes a set of key-pool indices from the package
// identified by PackageID.
type DeleteKeysOp struct {
	PackageID uint32   `json:"package_id"`
	Indices   []uint32 `json:"indices"`
}

// RemapResourceOp rewrites every REFERENCE/DYNAMIC_REFERENCE value
// naming From to name To instead.
type RemapResourceOp struct {
	From ResourceID `json:"from"`
	To   ResourceID `json:"to"`
}

// Plan is a batch of mutations applied in one call (in the fixed order
// below, never interleaved) to a single File. Apply stops at the first
// operation that fails; operations already performed stay applied. It is the on-disk shape
// fed to "arscrec plan apply" as a JSON document, but is equally usable
// as a library call.
type Plan struct {
	RenameStrings  []RenameStringOp  `json:"rename_strings,omitempty"`
	RenameKeys     []RenameKeyOp     `json:"rename_keys,omitempty"`
	RemapResources []RemapResourceOp `json:"remap_resources,omitempty"`
	DeleteKeys     []DeleteKeysOp    `json:"delete_keys,omitempty"`
	DeleteStrings  []uint32          `json:"delete_strings,omitempty"`
}

// valuePool returns the pool that string-typed ResourceValue.Data and
// plain string-pool indices throughout f are drawn from: a table's
// global pool, or an XML tree's document pool.
func (f *File) valuePool() (*StringPoolChunk, error) {
	if t := f.Table(); t != nil {
		if pool := t.GlobalStringPool(); pool != nil {
			return pool, nil
		}
		return nil, &InvariantViolationError{Msg: "table has no global string pool"}
	}
	if x := f.XML(); x != nil {
		if pool := x.StringPool(); pool != nil {
			return pool, nil
		}
		return nil, &InvariantViolationError{Msg: "XML tree has no string pool"}
	}
	return nil, &InvariantViolationError{Msg: "file has no table or XML root chunk"}
}

// remapResourceReferences dispatches RemapResourceReferences to
// whichever root chunk f carries.
func (f *File) remapResourceReferences(m map[ResourceID]ResourceID) int {
	if t := f.Table(); t != nil {
		return t.RemapResourceReferences(m)
	}
	if x := f.XML(); x != nil {
		return x.RemapResourceReferences(m)
	}
	return 0
}

// Apply performs every operation in p against f, in the fixed order
// that RenameStrings/RenameKeys/RemapResources (none of which shift any
// index) run before DeleteKeys/DeleteStrings (which do) — so every
// index named anywhere in p refers to f's pre-plan layout, regardless
// of where in the plan it appears.
func (p *Plan) Apply(f *File) error {
	pool, err := f.valuePool()
	if err != nil && (len(p.RenameStrings) > 0 || len(p.DeleteStrings) > 0) {
		return err
	}
	for _, op := range p.RenameStrings {
		if err := pool.SetString(op.Index, op.To); err != nil {
			return fmt.Errorf("rename_strings[%d]: %w", op.Index, err)
		}
	}

	table := f.Table()
	for _, op := range p.RenameKeys {
		if table == nil {
			return &InvariantViolationError{Msg: "rename_keys requires a resource table"}
		}
		pkg := table.PackageByID(uint8(op.PackageID))
		if pkg == nil {
			return &InvariantViolationError{Msg: fmt.Sprintf("rename_keys: no package 0x%02x", op.PackageID)}
		}
		keyPool := pkg.KeyStringPool()
		if keyPool == nil {
			return &InvariantViolationError{Msg: fmt.Sprintf("rename_keys: package 0x%02x has no key pool", op.PackageID)}
		}
		if err := keyPool.SetString(op.Index, op.To); err != nil {
			return fmt.Errorf("rename_keys[pkg=0x%02x]: %w", op.PackageID, err)
		}
	}

	if len(p.RemapResources) > 0 {
		m := make(map[ResourceID]ResourceID, len(p.RemapResources))
		for _, op := range p.RemapResources {
			m[op.From] = op.To
		}
		f.remapResourceReferences(m)
	}

	for _, op := range p.DeleteKeys {
		if table == nil {
			return &InvariantViolationError{Msg: "delete_keys requires a resource table"}
		}
		pkg := table.PackageByID(uint8(op.PackageID))
		if pkg == nil {
			return &InvariantViolationError{Msg: fmt.Sprintf("delete_keys: no package 0x%02x", op.PackageID)}
		}
		if err := pkg.DeleteKeys(op.Indices); err != nil {
			return fmt.Errorf("delete_keys[pkg=0x%02x]: %w", op.PackageID, err)
		}
	}

	if len(p.DeleteStrings) > 0 {
		if err := f.DeleteStrings(p.DeleteStrings); err != nil {
			return fmt.Errorf("delete_strings: %w", err)
		}
	}

	return nil
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package arsc

// SerializeOptions controls how a chunk tree is re-serialized. The zero
// value is NONE: byte-exact round-trip of an untouched tree.
type SerializeOptions struct {
	// Shrink deduplicates strings and styles by content when
	// re-emitting string pools, even if the pool wasn't already
	// flagged as originally-deduplicated.
	Shrink bool

	// PrivateResources strips the "public" bit from every type-spec
	// configuration mask and every type entry flags word.
	PrivateResources bool
}

// NoneOptions is the default, round-trip-preserving option set.
var NoneOptions = SerializeOptions{}

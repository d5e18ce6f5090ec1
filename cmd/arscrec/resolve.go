// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/lib/arsc"
	"github.com/arscrec/arscrec/lib/containers"
	"github.com/arscrec/arscrec/lib/textui"
)

// resolvedEntry is the cached, display-ready form of a table lookup:
// small enough that caching it (rather than the *arsc.Entry, which
// would alias mutable table state) is unambiguously safe.
type resolvedEntry struct {
	Package string
	TypeID  uint8
	Locale  string
	Value   string
}

func init() {
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "resolve TABLE XML",
			Short: "Resolve every REFERENCE attribute/cdata value of an XML document against a resource table",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			tableFile, err := readFile(ctx, args[0])
			if err != nil {
				return err
			}
			table := tableFile.Table()
			if table == nil {
				return fmt.Errorf("%q has no resource table", args[0])
			}

			xmlFile, err := readFile(ctx, args[1])
			if err != nil {
				return err
			}
			tree := xmlFile.XML()
			if tree == nil {
				return fmt.Errorf("%q has no XML tree", args[1])
			}

			cache := containers.NewLRUCache[arsc.ResourceID, containers.Optional[resolvedEntry]](256)
			var hits, misses int
			resolve := func(id arsc.ResourceID) (resolvedEntry, bool) {
				if _, ok := cache.Peek(id); ok {
					hits++
				} else {
					misses++
				}
				opt := cache.GetOrElse(id, func() containers.Optional[resolvedEntry] {
					pkg, typ, entry, err := table.Resolve(id)
					if err != nil {
						return containers.Optional[resolvedEntry]{}
					}
					re := resolvedEntry{Package: pkg.Name, TypeID: typ.ID, Locale: typ.Config.Locale()}
					if entry.IsComplex() {
						re.Value = fmt.Sprintf("<complex, %d map entries>", len(entry.Map))
					} else {
						re.Value = fmt.Sprintf("type=%v data=0x%x", entry.Value.Type, entry.Value.Data)
					}
					return containers.Optional[resolvedEntry]{OK: true, Val: re}
				})
				return opt.Val, opt.OK
			}

			seen := 0
			for _, ch := range tree.Children {
				switch b := ch.Body.(type) {
				case *arsc.XMLElementStartChunk:
					for _, a := range b.Attributes {
						if a.TypedValue.Type != arsc.ValueReference && a.TypedValue.Type != arsc.ValueDynamicReference {
							continue
						}
						seen++
						id := arsc.ResourceID(a.TypedValue.Data)
						re, ok := resolve(id)
						if !ok {
							textui.Fprintf(os.Stdout, "%v: unresolved\n", id)
							continue
						}
						textui.Fprintf(os.Stdout, "%v: package=%q type=%d locale=%q %s\n", id, re.Package, re.TypeID, re.Locale, re.Value)
					}
				case *arsc.XMLCDataChunk:
					if b.TypedValue.Type != arsc.ValueReference && b.TypedValue.Type != arsc.ValueDynamicReference {
						continue
					}
					seen++
					id := arsc.ResourceID(b.TypedValue.Data)
					re, ok := resolve(id)
					if !ok {
						textui.Fprintf(os.Stdout, "%v: unresolved\n", id)
						continue
					}
					textui.Fprintf(os.Stdout, "%v: package=%q type=%d locale=%q %s\n", id, re.Package, re.TypeID, re.Locale, re.Value)
				}
			}
			dlog.Infof(ctx, "resolved %d reference(s): %d cache hit(s), %d miss(es)", seen, hits, misses)
			return nil
		},
	}
	commands = append(commands, cmd)
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/lib/arsc"
	"github.com/arscrec/arscrec/lib/jsonutil"
	"github.com/arscrec/arscrec/lib/textui"
)

// hexBytes renders as a quoted hex string in JSON output (rather than
// lowmemjson's default base64 []byte encoding), matching the hex dumps
// an analyst would expect from an unrecognized chunk's raw bytes.
type hexBytes []byte

func (h hexBytes) EncodeJSON(w io.Writer) error {
	return jsonutil.EncodeHexString(w, []byte(h))
}

func init() {
	var asJSON bool
	var debugDump bool
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "dump FILE",
			Short: "Print the chunk tree of a compiled resource file",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			f, err := readFile(ctx, args[0])
			if err != nil {
				return err
			}
			switch {
			case debugDump:
				spew.Fdump(os.Stdout, f)
			case asJSON:
				var roots []jsonChunk
				for _, c := range f.Chunks {
					roots = append(roots, dumpChunk(c))
				}
				if err := writeJSONFile(os.Stdout, roots); err != nil {
					return err
				}
			default:
				for _, c := range f.Chunks {
					printChunk(os.Stdout, c, 0)
				}
			}
			return nil
		},
	}
	cmd.Command.Flags().BoolVar(&asJSON, "json", false, "print as JSON instead of text")
	cmd.Command.Flags().BoolVar(&debugDump, "debug-dump", false, "pretty-print the raw parsed Go struct tree with go-spew, for manual inspection")
	commands = append(commands, cmd)
}

// chunkChildren returns the nested chunks directly owned by body, for
// the container kinds that have any.
func chunkChildren(body arsc.ChunkBody) []*arsc.Chunk {
	switch b := body.(type) {
	case *arsc.TableChunk:
		return b.Children
	case *arsc.PackageChunk:
		return b.Children
	case *arsc.XMLChunk:
		return b.Children
	default:
		return nil
	}
}

// chunkSummary renders a one-line, type-specific description of body,
// the way `dump`'s text mode and JSON mode both use for a leaf's label.
func chunkSummary(body arsc.ChunkBody) string {
	switch b := body.(type) {
	case *arsc.StringPoolChunk:
		return textui.Sprintf("%d string(s), %d style run(s), encoding=%v, dedup=%v",
			len(b.Strings), len(b.Styles), b.Encoding, b.IsOriginallyDeduplicated())
	case *arsc.TableChunk:
		return textui.Sprintf("%d package(s)", len(b.Packages()))
	case *arsc.PackageChunk:
		return textui.Sprintf("id=0x%02x name=%q", b.ID, b.Name)
	case *arsc.TypeSpecChunk:
		return textui.Sprintf("type id=%d, %d entries", b.ID, len(b.Masks))
	case *arsc.TypeChunk:
		locale := b.Config.Locale()
		if locale == "" {
			locale = "(default)"
		}
		return textui.Sprintf("type id=%d, locale=%s, sparse=%v, %d entries",
			b.ID, locale, b.Sparse, len(b.Entries))
	case *arsc.LibraryChunk:
		return textui.Sprintf("%d shared-library entries", len(b.Entries))
	case *arsc.XMLChunk:
		return textui.Sprintf("%d node(s)", len(b.Children))
	case *arsc.XMLNamespaceChunk:
		dir := "start"
		if b.End {
			dir = "end"
		}
		return textui.Sprintf("%s prefix=%d uri=%d", dir, b.Prefix, b.URI)
	case *arsc.XMLElementStartChunk:
		return textui.Sprintf("name=%d, %d attribute(s)", b.Name, len(b.Attributes))
	case *arsc.XMLElementEndChunk:
		return textui.Sprintf("name=%d", b.Name)
	case *arsc.XMLCDataChunk:
		return textui.Sprintf("data=%d", b.Data)
	case *arsc.XMLResourceMapChunk:
		return textui.Sprintf("%d resource id(s)", len(b.IDs))
	case *arsc.OpaqueChunk:
		return textui.Sprintf("%d raw byte(s), unrecognized kind", len(b.Raw))
	default:
		return ""
	}
}

func printChunk(w io.Writer, c *arsc.Chunk, depth int) {
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += "  "
	}
	textui.Fprintf(w, "%s%v @0x%x: %s\n", prefix, c.Body.Kind(), c.Offset, chunkSummary(c.Body))
	for _, child := range chunkChildren(c.Body) {
		printChunk(w, child, depth+1)
	}
}

type jsonChunk struct {
	Offset   int64       `json:"offset"`
	Kind     string      `json:"kind"`
	Summary  string      `json:"summary,omitempty"`
	Raw      hexBytes    `json:"raw,omitempty"`
	Children []jsonChunk `json:"children,omitempty"`
}

func dumpChunk(c *arsc.Chunk) jsonChunk {
	out := jsonChunk{
		Offset:  c.Offset,
		Kind:    fmt.Sprint(c.Body.Kind()),
		Summary: chunkSummary(c.Body),
	}
	if b, ok := c.Body.(*arsc.OpaqueChunk); ok {
		out.Raw = hexBytes(b.Raw)
	}
	for _, child := range chunkChildren(c.Body) {
		out.Children = append(out.Children, dumpChunk(child))
	}
	return out
}

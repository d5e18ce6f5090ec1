// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/lib/arsc"
	"github.com/arscrec/arscrec/lib/textui"
)

func init() {
	var renames []string
	var deletes string
	var out string
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "strings FILE",
			Short: "List, rename, or delete entries of the global (or document) string pool",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			f, err := readFile(ctx, args[0])
			if err != nil {
				return err
			}
			pool, err := filePool(f)
			if err != nil {
				return err
			}

			renameOps, err := parseRenames(renames)
			if err != nil {
				return err
			}
			deleteIdxs, err := parseIndexList(deletes)
			if err != nil {
				return err
			}

			if len(renameOps) == 0 && len(deleteIdxs) == 0 {
				for i, s := range pool.Strings {
					textui.Fprintf(os.Stdout, "%d\t%q\n", i, s)
				}
				return nil
			}

			if out == "" {
				return fmt.Errorf("--out is required when --rename or --delete is given")
			}
			for _, op := range renameOps {
				if err := pool.SetString(op.idx, op.to); err != nil {
					return err
				}
				dlog.Infof(ctx, "renamed string %d to %q", op.idx, op.to)
			}
			if len(deleteIdxs) > 0 {
				if err := f.DeleteStrings(deleteIdxs); err != nil {
					return err
				}
				dlog.Infof(ctx, "deleted %d string(s)", len(deleteIdxs))
			}
			return writeFile(ctx, out, f, arsc.NoneOptions)
		},
	}
	cmd.Command.Flags().StringArrayVar(&renames, "rename", nil, "rename string `IDX=NEW` (repeatable)")
	cmd.Command.Flags().StringVar(&deletes, "delete", "", "comma-separated list of string indices to delete")
	cmd.Command.Flags().StringVar(&out, "out", "", "file to write the mutated container to")
	if err := cmd.Command.MarkFlagFilename("out"); err != nil {
		panic(err)
	}
	commands = append(commands, cmd)
}

// filePool returns whichever pool `strings`/`plan apply` operate
// against: a table's global pool, or an XML document's own pool.
func filePool(f *arsc.File) (*arsc.StringPoolChunk, error) {
	if t := f.Table(); t != nil {
		if pool := t.GlobalStringPool(); pool != nil {
			return pool, nil
		}
		return nil, fmt.Errorf("table has no global string pool")
	}
	if x := f.XML(); x != nil {
		if pool := x.StringPool(); pool != nil {
			return pool, nil
		}
		return nil, fmt.Errorf("XML tree has no string pool")
	}
	return nil, fmt.Errorf("file has no table or XML root chunk")
}

type renameOp struct {
	idx uint32
	to  string
}

func parseRenames(raw []string) ([]renameOp, error) {
	ops := make([]renameOp, 0, len(raw))
	for _, r := range raw {
		eq := strings.IndexByte(r, '=')
		if eq < 0 {
			return nil, fmt.Errorf("--rename %q: expected IDX=NEW", r)
		}
		idx, err := strconv.ParseUint(r[:eq], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("--rename %q: %w", r, err)
		}
		ops = append(ops, renameOp{idx: uint32(idx), to: r[eq+1:]})
	}
	return ops, nil
}

func parseIndexList(raw string) ([]uint32, error) {
	if raw == "" {
		return nil, nil
	}
	fields := strings.Split(raw, ",")
	idxs := make([]uint32, 0, len(fields))
	for _, f := range fields {
		idx, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("--delete %q: %w", raw, err)
		}
		idxs = append(idxs, uint32(idx))
	}
	return idxs, nil
}

// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/lib/arsc"
)

func init() {
	var planFile, out string
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "apply FILE",
			Short: "Apply a JSON plan of rename/remap/delete operations to FILE",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if planFile == "" {
				return fmt.Errorf("--plan is required")
			}
			if out == "" {
				return fmt.Errorf("--out is required")
			}

			f, err := readFile(ctx, args[0])
			if err != nil {
				return err
			}

			plan, err := readJSONFile[arsc.Plan](planFile)
			if err != nil {
				return fmt.Errorf("reading plan %q: %w", planFile, err)
			}
			dlog.Infof(ctx, "applying plan: %d rename_strings, %d rename_keys, %d remap_resources, %d delete_keys group(s), %d delete_strings",
				len(plan.RenameStrings), len(plan.RenameKeys), len(plan.RemapResources), len(plan.DeleteKeys), len(plan.DeleteStrings))

			if err := plan.Apply(f); err != nil {
				return err
			}

			return writeFile(ctx, out, f, arsc.NoneOptions)
		},
	}
	cmd.Command.Flags().StringVar(&planFile, "plan", "", "path to the JSON plan document")
	cmd.Command.Flags().StringVar(&out, "out", "", "file to write the mutated container to")
	if err := cmd.Command.MarkFlagFilename("plan", "json"); err != nil {
		panic(err)
	}
	if err := cmd.Command.MarkFlagFilename("out"); err != nil {
		panic(err)
	}
	planCommands = append(planCommands, cmd)
}

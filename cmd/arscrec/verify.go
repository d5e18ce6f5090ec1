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
	"github.com/arscrec/arscrec/lib/textui"
)

func init() {
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "verify FILE",
			Short: "Round-trip FILE under NONE options and report a byte-exact diff if any",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dlog.Infof(ctx, "round-tripping %d bytes...", len(raw))
			res, err := arsc.RoundTrip(raw)
			if err != nil {
				return err
			}
			if res.OK {
				textui.Fprintf(os.Stdout, "%q round-trips byte-exact (%d bytes)\n", args[0], res.OriginalLen)
				return nil
			}
			textui.Fprintf(os.Stdout,
				"%q does NOT round-trip: original=%d bytes, re-serialized=%d bytes, first differing byte at offset 0x%x\n",
				args[0], res.OriginalLen, res.ReserializedLen, res.FirstDiffOffset)
			return fmt.Errorf("round-trip mismatch")
		},
	}
	commands = append(commands, cmd)
}

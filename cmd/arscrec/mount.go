// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/cmd/arscrec/mount"
)

func init() {
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "mount FILE MOUNTPOINT",
			Short: "Mount a resource table read-only as a FUSE filesystem of package/type/entry directories",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
		},
		RunE: func(ctx context.Context, cmd *cobra.Command, args []string) error {
			f, err := readFile(ctx, args[0])
			if err != nil {
				return err
			}
			table := f.Table()
			if table == nil {
				return fmt.Errorf("%q has no resource table", args[0])
			}
			deviceName := args[0]
			if abs, err := filepath.Abs(deviceName); err == nil {
				deviceName = abs
			}
			return mount.MountRO(ctx, table, deviceName, args[1])
		},
	}
	commands = append(commands, cmd)
}

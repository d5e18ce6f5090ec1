// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arscrec/arscrec/lib/textui"
)

// subcommand pairs a *cobra.Command with a context-aware RunE so that
// every leaf command gets the same logger/signal-handling wrapper
// without repeating it in each file.
type subcommand struct {
	cobra.Command
	RunE func(ctx context.Context, cmd *cobra.Command, args []string) error
}

// commands holds every top-level leaf subcommand (dump, strings,
// verify, mount, resolve); planCommands holds the leaves nested under
// "arscrec plan" (currently just "apply").
var commands, planCommands []subcommand

// wireGroup attaches every subcommand in group to parent, wrapping each
// leaf's RunE with the shared logger/signal-handling boilerplate.
func wireGroup(parent *cobra.Command, verbosity *textui.LogLevelFlag, group []subcommand) {
	for _, child := range group {
		cmd := child.Command
		runE := child.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			lvl, err := logrus.ParseLevel(verbosity.String())
			if err != nil {
				return err
			}
			logger.SetLevel(lvl)
			ctx := dlog.WithLogger(cmd.Context(), dlog.WrapLogrus(logger))

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})
			grp.Go("main", func(ctx context.Context) error {
				return runE(ctx, cmd, args)
			})
			return grp.Wait()
		}
		parent.AddCommand(&cmd)
	}
}

func main() {
	var verbosity textui.LogLevelFlag
	verbosity.Level = dlog.LogLevelInfo

	argparser := &cobra.Command{
		Use:   "arscrec {[flags]|SUBCOMMAND}",
		Short: "Inspect and mutate compiled Android resource containers",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true, // main() handles this after .ExecuteContext() returns
		SilenceUsage:  true, // our FlagErrorFunc handles it

		CompletionOptions: cobra.CompletionOptions{ //nolint:exhaustivestruct
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(&verbosity, "verbosity", "set the verbosity")

	argparserPlan := &cobra.Command{
		Use:   "plan {[flags]|SUBCOMMAND}",
		Short: "Apply a batch of rename/delete/remap operations described in a JSON plan",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,
	}
	argparser.AddCommand(argparserPlan)

	wireGroup(argparser, &verbosity, commands)
	wireGroup(argparserPlan, &verbosity, planCommands)

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}

// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "sqlquery",
		Short:         "Render and run PostgreSQL statements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log statements to stderr")

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newPingCmd(opts))
	return rootCmd
}

// logger returns the logger for cmd. Debug output is enabled with --verbose.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

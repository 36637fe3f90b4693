// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlquery"
	"github.com/canonical/sqlquery/postgres"
)

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database and run a trivial statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := root.logger(cmd)
			cfg, err := postgres.LoadConfig(root.configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := postgres.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := postgres.NewDB(pool, sqlquery.WithLogger(logger))
			outcome, err := db.Select(sqlquery.Raw("1").As("ok")).Run(ctx)
			if err != nil {
				return fmt.Errorf("cannot run ping statement: %w", err)
			}
			logger.Debug("ping succeeded", slog.Int("rows", len(outcome.Rows())))
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

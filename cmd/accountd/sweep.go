// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
	authpg "github.com/holomush/accountd/internal/auth/postgres"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired one-time tokens once",
		Long: `Delete verification and password reset tokens older than their
configured TTL, then exit. serve runs the same sweep on a timer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, deps.withDefaults())
		},
	}
}

func runSweep(cmd *cobra.Command, deps *Deps) error {
	cfg, err := config.Load(cmd.Flags(), deps.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := deps.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err
	}
	defer pool.Close()

	// A one-shot sweep never ticks; the interval only has to be valid.
	sweeper, err := auth.NewSweeper(authpg.NewTokenRepository(pool), cfg.Policy(), config.DefaultSweepInterval, logger)
	if err != nil {
		return err
	}
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d expired token(s)\n", n)
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/config"
)

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - account authentication and lifecycle service",
		Long: `accountd registers accounts, verifies their email addresses, issues
session tokens and runs the password reset and change flows.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(config.ConfigFlag, "",
		"config file path (default: $XDG_CONFIG_HOME/accountd/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewSweepCmd(deps))

	return cmd
}

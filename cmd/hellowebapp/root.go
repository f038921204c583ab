// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/hellowebapp/hellowebapp/internal/config"
	"github.com/hellowebapp/hellowebapp/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the hellowebapp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hellowebapp",
		Short: "Hello Web App - account and session server",
		Long: `hellowebapp serves the account API: signup, signin with rotating
refresh tokens, email identity verification and password reset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (YAML, default $XDG_CONFIG_HOME/hellowebapp/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the configuration for cmd from the --config file, the
// environment and the command's flags. Without --config the XDG config file
// is used when it exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file := configFile
	if file == "" {
		if path, ok := xdg.DefaultConfigFile(); ok {
			file = path
		}
	}
	return config.Load(config.Options{File: file, Flags: cmd.Flags()}) //nolint:wrapcheck // coded by config
}

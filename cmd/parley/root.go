// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/parley/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the parley CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: "parley - NPC conversations for game servers",
		Long: `parley runs branching NPC conversations for players. Dialogue lines and
options come from a generation backend; when it is slow or down, characters
fall back to scripted lines so a conversation never stalls.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/parley/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewCharactersCmd())

	return cmd
}

// loadConfig resolves configuration for cmd from --config and its flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors already carry codes and context
	return config.Load(cmd.Flags(), configFile)
}

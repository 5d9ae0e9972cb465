// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/parley/internal/dialogue"
)

// NewCharactersCmd creates the characters subcommand.
func NewCharactersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "characters",
		Short: "List characters with scripted fallback lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := dialogue.DefaultFallbackCatalog()
			for _, id := range catalog.Characters() {
				cmd.Printf("%-8s %s\n", id, catalog.Greeting(id, ""))
			}
			return nil
		},
	}
}

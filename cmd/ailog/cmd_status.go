package main

import (
	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/syncer"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current sync status and statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		return syncer.New(cfg).Status(cmd.Context())
	},
}

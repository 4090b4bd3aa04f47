package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd.OutOrStdout(), "%s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

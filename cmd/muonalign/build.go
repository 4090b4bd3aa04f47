package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/alignment"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the alignable hierarchy and print node counts",
	Long: `Build the alignable muon hierarchy from the ideal geometry (or
--geometry) and print the number of nodes per structure type.

Examples:
  muonalign build
  muonalign build --geometry chambers.yaml`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := clock.Now()
	m, err := buildMuon()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	stats := m.Stats()
	for _, t := range alignment.StructureTypes() {
		printf(out, "%-12s %6d\n", t, stats.Counts[t])
	}
	printf(out, "%-12s %6d\n", "total", stats.Total())
	if stats.Dropped > 0 {
		printf(out, "%-12s %6d\n", "dropped", stats.Dropped)
	}
	printf(cmd.ErrOrStderr(), "built in %s\n", clock.Since(start).Round(time.Millisecond))
	return nil
}

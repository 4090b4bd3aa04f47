package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/misalign"
)

var exportScenario string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the four alignment records to the conditions database",
	Long: `Build the hierarchy, optionally apply a misalignment scenario, add
the configured base position errors and write the DT and CSC alignment
and error records under the configured tag.

Examples:
  muonalign export --db conditions.db --tag ideal
  muonalign export --scenario scenarios/startup.yaml --tag startup`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportScenario, "scenario", "", "YAML misalignment scenario")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	m, err := buildMuon()
	if err != nil {
		return err
	}

	if exportScenario != "" {
		scenario, err := misalign.LoadScenario(osFS, exportScenario)
		if err != nil {
			return err
		}
		if err := misalign.NewBuilder(m).Apply(scenario); err != nil {
			return err
		}
	}
	if err := misalign.AddBaseError(m, toolConfig.GetShiftError(), toolConfig.GetAngleError()); err != nil {
		return err
	}

	store, err := openStore("")
	if err != nil {
		return err
	}
	defer store.Close()

	names := toolConfig.RecordNames()
	if err := alignment.Export(context.Background(), m, store, names); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "wrote %s, %s, %s, %s (tag %s)\n",
		names.DTAlignments, names.DTAlignmentErrors, names.CSCAlignments, names.CSCAlignmentErrors, store.Tag())
	return nil
}

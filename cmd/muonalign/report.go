package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/condb"
	"github.com/banshee-data/muonalign/internal/report"
)

var (
	reportRecord       string
	reportDir          string
	reportReferenceTag string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render displacement reports for a stored alignment record",
	Long: `Read the latest payload of an alignment record and render a PNG
histogram and an HTML per-station chart of each chamber's displacement
from the reference geometry (ideal, or --geometry). With
--reference-tag the reference is that geometry with the records stored
under the given tag applied, so two tags can be compared.

Examples:
  muonalign report --record DTAlignments --tag startup
  muonalign report --tag run3 --reference-tag startup
  muonalign report --record CSCAlignments --out /tmp/reports`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportRecord, "record", "", "alignment record to report on (default: DT alignments record)")
	reportCmd.Flags().StringVar(&reportDir, "out", "", "output directory (default: report_dir)")
	reportCmd.Flags().StringVar(&reportReferenceTag, "reference-tag", "", "compare against the records stored under this tag")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	record := reportRecord
	if record == "" {
		record = toolConfig.RecordNames().DTAlignments
	}
	dir := reportDir
	if dir == "" {
		dir = toolConfig.GetReportDir()
	}

	store, err := openStore("")
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	current, err := store.ReadAlignments(ctx, record, toolConfig.GetTag())
	if err != nil {
		return err
	}

	reference, err := buildMuon()
	if err != nil {
		return err
	}
	if reportReferenceTag != "" {
		if err := condb.LoadInto(ctx, store, reference, toolConfig.RecordNames(), reportReferenceTag); err != nil {
			return fmt.Errorf("load reference tag %s: %w", reportReferenceTag, err)
		}
	}
	ds, err := report.Displacements(current, reference.Alignments())
	if err != nil {
		return fmt.Errorf("record %s does not match the reference geometry: %w", record, err)
	}

	paths, err := report.WriteReports(osFS, dir, record, ds)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range paths {
		printf(out, "%s\n", p)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/condb"
)

var (
	copyFrom  string
	copyTo    string
	copyToTag string
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the four alignment records between databases",
	Long: `Copy the latest DT and CSC alignment and error records under the
configured tag from one conditions database to another. With --to-tag
the copies are written under a different tag.

Examples:
  muonalign copy --from prod.db --to local.db --tag run3
  muonalign copy --to local.db --tag run3 --to-tag run3-frozen`,
	Args: cobra.NoArgs,
	RunE: runCopy,
}

func init() {
	copyCmd.Flags().StringVar(&copyFrom, "from", "", "source database (default: configured db)")
	copyCmd.Flags().StringVar(&copyTo, "to", "", "destination database")
	copyCmd.Flags().StringVar(&copyToTag, "to-tag", "", "tag to write under in the destination (default: --tag)")
	_ = copyCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	from, err := openStore(copyFrom)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer from.Close()

	to, err := openStore(copyTo)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer to.Close()
	if copyToTag != "" {
		to = to.WithTag(copyToTag)
	}

	if err := condb.CopyRecords(context.Background(), from, to, toolConfig.RecordNames(), toolConfig.GetTag()); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "copied tag %s to %s (tag %s)\n", toolConfig.GetTag(), copyTo, to.Tag())
	return nil
}

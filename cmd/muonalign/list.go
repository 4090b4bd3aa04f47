package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var listAllTags bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored payloads",
	Long: `List the payloads of the conditions database under the configured
tag, oldest first, with their record, kind, interval start and entry count.

Examples:
  muonalign list --tag startup
  muonalign list --all-tags`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAllTags, "all-tags", false, "list payloads of every tag")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore("")
	if err != nil {
		return err
	}
	defer store.Close()

	tag := toolConfig.GetTag()
	if listAllTags {
		tag = ""
	}
	payloads, err := store.ListPayloads(context.Background(), tag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range payloads {
		printf(out, "%s  %-12s %-24s %-10s %6d  %s\n",
			p.ID, p.Tag, p.Record, p.Kind, p.Entries, p.Since.Format(time.RFC3339))
	}
	printf(out, "%d payloads\n", len(payloads))
	return nil
}

// Command muonalign builds the alignable muon hierarchy, applies
// misalignment scenarios and manages alignment records in a conditions
// database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/condb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the conditions database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore("")
		if err != nil {
			return err
		}
		defer store.Close()
		return printVersion(cmd, store.MigrateVersion)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRawStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateDown(); err != nil {
			return err
		}
		return printVersion(cmd, store.MigrateVersion)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRawStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return printVersion(cmd, store.MigrateVersion)
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Force the schema version (recovery from a dirty state)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		store, err := openRawStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateForce(v); err != nil {
			return err
		}
		return printVersion(cmd, store.MigrateVersion)
	},
}

// openRawStore opens the configured database without migrating it.
func openRawStore() (*condb.Store, error) {
	return condb.Open(toolConfig.GetDBPath(), toolConfig.GetTag(), clock)
}

func printVersion(cmd *cobra.Command, current func() (uint, bool, error)) error {
	v, dirty, err := current()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	printf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, state)
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
}

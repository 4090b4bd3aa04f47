package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/muonalign/internal/alignment"
	"github.com/banshee-data/muonalign/internal/condb"
	"github.com/banshee-data/muonalign/internal/config"
	"github.com/banshee-data/muonalign/internal/fsutil"
	"github.com/banshee-data/muonalign/internal/geometry"
	"github.com/banshee-data/muonalign/internal/monitoring"
	"github.com/banshee-data/muonalign/internal/timeutil"
	"github.com/banshee-data/muonalign/internal/version"
)

var (
	configPath   string
	dbPathFlag   string
	tagFlag      string
	geometryPath string
	verboseFlag  bool
	traceFlag    bool

	// toolConfig is resolved before every command runs.
	toolConfig *config.ToolConfig

	osFS  fsutil.FileSystem = fsutil.OSFileSystem{}
	clock timeutil.Clock    = timeutil.RealClock{}
)

var rootCmd = &cobra.Command{
	Use:   "muonalign",
	Short: "Muon alignment hierarchy and conditions tool",
	Long: `muonalign builds the alignable muon hierarchy (DT barrel and CSC
endcaps) from an ideal or file geometry, applies seeded misalignment
scenarios and reads or writes the four alignment records of a
conditions database.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.SetVersionTemplate("muonalign version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON tool configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "conditions database path (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&tagFlag, "tag", "", "conditions tag (overrides tag)")
	rootCmd.PersistentFlags().StringVar(&geometryPath, "geometry", "", "JSON or YAML chamber list (default: ideal geometry)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable diagnostic logging")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "log every misalignment movement")
}

func setup(cmd *cobra.Command, args []string) error {
	errOut := cmd.ErrOrStderr()
	writers := monitoring.LogWriters{Ops: errOut}
	if verboseFlag {
		writers.Diag = errOut
	}
	if traceFlag {
		writers.Trace = errOut
	}
	monitoring.SetLogWriters(writers)

	cfg := config.EmptyToolConfig()
	if configPath != "" {
		loaded, err := config.LoadToolConfig(osFS, configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = &dbPathFlag
	}
	if cmd.Flags().Changed("tag") {
		cfg.Tag = &tagFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	toolConfig = cfg
	return nil
}

func loadGeometry() (geometry.Provider, error) {
	if geometryPath == "" {
		return geometry.IdealProvider(), nil
	}
	return geometry.LoadProvider(osFS, geometryPath)
}

func buildMuon() (*alignment.Muon, error) {
	provider, err := loadGeometry()
	if err != nil {
		return nil, fmt.Errorf("failed to load geometry: %w", err)
	}
	return alignment.NewMuon(provider)
}

// openStore opens path, or the configured database when path is empty,
// and brings its schema up to date.
func openStore(path string) (*condb.Store, error) {
	if path == "" {
		path = toolConfig.GetDBPath()
	}
	store, err := condb.Open(path, toolConfig.GetTag(), clock)
	if err != nil {
		return nil, err
	}
	if err := store.MigrateUp(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}

// =============================================================================
// GPS to ERP Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (gpsconv)
//   ├── convertCmd (gpsconv convert)   one report, one document
//   ├── processCmd (gpsconv process)   every report in the input directory
//   ├── serveCmd   (gpsconv serve)     upload form and JSON API
//   └── versionCmd (gpsconv version)
//
// The root command loads the configuration file and builds the logger before
// any subcommand runs.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig is loaded in PersistentPreRunE.
var appConfig *config.Config

// logger is built in PersistentPreRunE.
var logger = zap.NewNop()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "gpsconv",
	Short: "GPS to ERP Converter - Turn GPS order reports into ERP import CSVs",
	Long: `gpsconv converts the GPS order status report (.xlsx) into the purchase
order or sales order CSV the ERP bulk import expects. Unit cost and item title
come from an ERP item export (.csv).

Example Usage:
  gpsconv convert GPS_0801.xlsx items.csv            # GPS_0801_PO.csv next to the report
  gpsconv convert GPS_0801.xlsx items.csv --type so  # sales order layout
  gpsconv process --reference items.csv              # every report in input_dir
  gpsconv serve                                      # upload form and JSON API`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		l, err := newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file; a missing file means defaults",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// HELPERS
// =============================================================================

// newLogger builds a console logger at the configured level.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	if debug {
		lvl = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// loadReference parses the ERP item export with the configured CSV settings.
func loadReference(path string) (*csvparser.CSVData, error) {
	ref, err := csvparser.ParseFile(path, appConfig.Conversion.Reference)
	if err != nil {
		return nil, validation.NewInputError(validation.ReferenceSchema, err)
	}
	logger.Debug("Loaded reference table",
		zap.String("file", path),
		zap.Int("rows", ref.RowCount),
		zap.Int("columns", ref.ColumnCount),
	)
	return ref, nil
}

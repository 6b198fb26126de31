// =============================================================================
// SAF-T PT Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand is
// attached to it and shares its persistent flags.
//
// COBRA CLI STRUCTURE:
//   rootCmd (saft)
//   ├── processCmd  (saft process)
//   ├── validateCmd (saft validate)
//   ├── fieldsCmd   (saft fields)
//   ├── demoCmd     (saft demo)
//   └── versionCmd  (saft version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --verbose)
//   2. Loading the .env file before any command runs
//   3. Building the logger and the entity store for commands that need them
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before the configuration.
var envFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "saft",
	Short: "SAF-T PT Generator - Build SAF-T (PT) 1.04_01 accounting files from CSV and XLSX exports",
	Long: `SAF-T PT Generator maps rows of CSV and XLSX exports onto the SAF-T (PT)
accounting data model, stores them per company and produces a schema-valid
SAFTPT1_04_01 AuditFile.

Key Features:
  - Mapping profiles in YAML or XLSX templates
  - Row validation with per-field error reporting
  - XSD validation of every generated file
  - Concurrent ingest with archival on success

Example Usage:
  saft process                      # Ingest the input directory and generate
  saft process --dry-run            # Validate everything, write nothing
  saft validate SAFT_2023.xml       # Check an existing file against the XSD
  saft fields Customer              # List the mappable fields of a model
  saft demo --year 2023             # Generate a file from demo data`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnv(envFile)
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
	err := rootCmd.Execute()
	xsdvalidator.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app bundles what most commands need from the configuration.
type app struct {
	cfg    *config.MainConfig
	logger *log.Logger
	store  store.Store
}

// Close releases the entity store.
func (a *app) Close() error {
	return a.store.Close()
}

// loadApp loads the main configuration, then builds the logger and opens the
// configured entity store.
func loadApp() (*app, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store, cfg.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func newLogger(cfg *config.MainConfig) (*log.Logger, error) {
	logCfg, err := cfg.LoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	if verbose {
		logCfg.Level = slog.LevelDebug
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Environment file loaded before the configuration (ignored when missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SAF-T PT Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool. It
// ingests the input files into the entity store and generates the SAF-T file.
//
// COMMAND USAGE:
//   saft process [flags]
//
// FLAGS:
//   --dry-run            : Validate everything, write nothing
//   --file               : Ingest only this file (repeatable)
//   --profile            : Use this mapping profile for every input
//   --owner              : Override the configured owner
//   --archive-retention  : Remove archived files older than this
//
// PROCESSING PIPELINE:
//   1. Load configuration and mapping profiles
//   2. Discover CSV and XLSX files in the input directory
//   3. Ingest files concurrently: map, validate, store
//   4. Assemble the AuditFile from every stored entity of the owner
//   5. Serialize and validate against the XSD
//   6. Write the SAF-T file, archive inputs and write the logs
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/converter"
	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun           bool
	inputFiles       []string
	profileName      string
	ownerOverride    string
	archiveRetention time.Duration
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Ingest CSV and XLSX exports and generate the SAF-T file",
	Long: `The process command scans the input directory for CSV and XLSX files,
matches each one to a mapping profile and stores the mapped entities for the
configured owner. It then assembles every stored entity of the owner into a
SAF-T AuditFile and validates it against the XSD.

Files are ingested concurrently, up to max_concurrency at a time.

On success:
  - The SAF-T file is placed in the output directory and copied to the
    output archive
  - The input files are moved to the input archive
  - A processing summary is written to the output directory

On error:
  - An error log lists every rejected row and schema violation
  - No SAF-T file is written and the inputs stay where they are`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Validate and generate in memory without writing or storing anything",
	)

	processCmd.Flags().StringArrayVar(
		&inputFiles,
		"file",
		nil,
		"Ingest only this file instead of the input directory (repeatable)",
	)

	processCmd.Flags().StringVar(
		&profileName,
		"profile",
		"",
		"Use the named mapping profile for every input file",
	)

	processCmd.Flags().StringVar(
		&ownerOverride,
		"owner",
		"",
		"Store and generate for this owner instead of the configured one",
	)

	processCmd.Flags().DurationVar(
		&archiveRetention,
		"archive-retention",
		0,
		"Remove archived files older than this after the run (e.g. 720h)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== SAF-T PT Generator ===")

	profiles, err := config.LoadProfileConfigs(a.cfg.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load mapping profiles: %w", err)
	}
	fmt.Fprintf(out, "Loaded %d mapping profile(s)\n", len(profiles))

	validator := xsdvalidator.New(a.logger)
	defer validator.Close()

	conv := converter.New(a.cfg, profiles, a.store,
		converter.WithLogger(a.logger),
		converter.WithValidator(validator),
	)

	inputs := inputFiles
	if len(inputs) == 0 {
		if inputs, err = conv.DiscoverInputs(); err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}
	if len(inputs) == 0 {
		fmt.Fprintln(out, "No CSV or XLSX files found in the input directory.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputs))

	result, runErr := conv.Run(cmd.Context(), inputs, converter.Options{
		DryRun:  dryRun,
		Owner:   ownerOverride,
		Profile: profileName,
	})
	if result != nil {
		printResult(cmd, result)
	}

	if runErr == nil && archiveRetention > 0 && !dryRun {
		removed, err := conv.CleanArchives(archiveRetention)
		if err != nil {
			a.logger.Warn("Failed to clean archives", "error", err)
		} else if removed > 0 {
			fmt.Fprintf(out, "Removed %d archived file(s) older than %s\n", removed, archiveRetention)
		}
	}

	if errors.Is(runErr, converter.ErrNoInputs) {
		return nil
	}
	return runErr
}

// printResult reports per-file outcomes, the generated file and the logs.
func printResult(cmd *cobra.Command, result *converter.Result) {
	out := cmd.OutOrStdout()

	for _, f := range result.Files {
		name := filepath.Base(f.FilePath)
		if f.Error != nil {
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, f.Error)
		} else {
			fmt.Fprintf(out, "  ✓ %s [%s -> %s] %d row(s), %d accepted\n", name, f.Profile, f.Kind, f.Rows, f.Accepted)
		}
		printRejected(cmd, f.Rejected)
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Owner:           %s\n", result.Owner)
	fmt.Fprintf(out, "Total files:     %d\n", len(result.Files))
	fmt.Fprintf(out, "Failed:          %d\n", len(result.FailedFiles()))
	fmt.Fprintf(out, "Time elapsed:    %s\n", result.EndTime.Sub(result.StartTime))

	if o := result.Output; o != nil {
		switch {
		case o.OutputFile != "":
			fmt.Fprintf(out, "SAF-T file:      %s\n", o.OutputFile)
		case result.DryRun && o.Validation.Valid:
			fmt.Fprintln(out, "Dry run:         document is valid, nothing written")
		}
		for _, issue := range o.Validation.Issues {
			fmt.Fprintf(out, "  ✗ %s\n", issue)
		}
	}

	if result.ErrorLog != "" {
		fmt.Fprintf(out, "Error log:       %s\n", result.ErrorLog)
	}
	if result.SummaryLog != "" {
		fmt.Fprintf(out, "Summary:         %s\n", result.SummaryLog)
	}
}

// maxPrintedRows caps the rejected rows printed per file; the error log has
// all of them.
const maxPrintedRows = 3

// printRejected prints the violations of the first rejected rows of a file.
func printRejected(cmd *cobra.Command, rejected []mapping.RowError) {
	out := cmd.OutOrStdout()
	for i, rej := range rejected {
		if i == maxPrintedRows {
			fmt.Fprintf(out, "      ... and %d more row(s), see the error log\n", len(rejected)-i)
			return
		}
		fmt.Fprintf(out, "      row %d: ", rej.Row)
		text := strings.TrimRight(validation.FormatErrors(rej.Err), "\n")
		fmt.Fprintln(out, strings.ReplaceAll(text, "\n", "\n        "))
	}
}

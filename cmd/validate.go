// =============================================================================
// SAF-T PT Generator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks existing SAF-T files
// against the XSD without touching the store.
//
// COMMAND USAGE:
//   saft validate <file.xml>... [--xsd SAFTPT1_04_01.xsd]
//
// Files are validated concurrently and share one compiled schema.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
)

// errInvalidFiles is returned when at least one file fails validation.
var errInvalidFiles = errors.New("one or more files are not valid")

var xsdPath string

var validateCmd = &cobra.Command{
	Use:   "validate <file.xml>...",
	Short: "Validate SAF-T files against the XSD",
	Long: `The validate command checks each file for well-formedness and against the
SAF-T (PT) XSD, reporting every violation with its line and column.

The schema defaults to xsd_path of the configuration file; --xsd makes the
configuration file optional.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(
		&xsdPath,
		"xsd",
		"",
		"Path to the SAF-T XSD (default is xsd_path from the configuration)",
	)
}

// fileCheck is the validation outcome of one file.
type fileCheck struct {
	file   string
	report xsdvalidator.Report
	err    error
}

func runValidate(cmd *cobra.Command, files []string) error {
	schema, logger, err := validateSetup()
	if err != nil {
		return err
	}

	validator := xsdvalidator.New(logger)
	defer validator.Close()

	results := make([]fileCheck, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i].file = file
			doc, err := os.ReadFile(file)
			if err != nil {
				results[i].err = fmt.Errorf("failed to read file: %w", err)
				return nil
			}
			results[i].report, results[i].err = validator.Validate(doc, schema)
			if errors.Is(results[i].err, xsdvalidator.ErrSchemaLoad) {
				return results[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, r := range results {
		name := filepath.Base(r.file)
		switch {
		case r.err != nil:
			invalid++
			fmt.Fprintf(out, "✗ %s: %v\n", name, r.err)
		case r.report.Valid:
			fmt.Fprintf(out, "✓ %s\n", name)
		default:
			invalid++
			fmt.Fprintf(out, "✗ %s: %d issue(s)\n", name, len(r.report.Issues))
			for _, issue := range r.report.Issues {
				fmt.Fprintf(out, "    [%s] %s\n", issue.Class, issue)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidFiles, invalid, len(files))
	}
	return nil
}

// validateSetup resolves the schema path and the logger. Without --xsd the
// configuration file is required.
func validateSetup() (string, *log.Logger, error) {
	if xsdPath != "" {
		logCfg := log.DefaultConfig()
		if verbose {
			logCfg.Level = slog.LevelDebug
		}
		return xsdPath, log.New(logCfg), nil
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration (or pass --xsd): %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return "", nil, err
	}
	return cfg.XSDPath, logger, nil
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LosLebos/SAFT-T-Portugal/internal/converter"
	"github.com/LosLebos/SAFT-T-Portugal/internal/demo"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
)

var (
	demoYear   int
	demoDryRun bool
)

// demoCmd seeds the demo company and generates its SAF-T file. Every other
// setting, the XSD and the output directory included, comes from the
// configuration.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate a SAF-T file from built-in demo data",
	Long: `The demo command saves a small demo company (customers, suppliers,
products, ledger accounts, tax table and one journal) under the "demo" owner,
then generates and validates its SAF-T file.

With --dry-run the demo data is kept in memory and nothing is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.store
		if demoDryRun {
			st = store.NewMemoryStore()
		}
		if err := st.Save(cmd.Context(), demo.Owner, demo.Entities(demoYear)...); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}

		debit, credit := demo.Totals()
		a.cfg.TotalDebit = saft.FormatMoney(debit)
		a.cfg.TotalCredit = saft.FormatMoney(credit)

		validator := xsdvalidator.New(a.logger)
		defer validator.Close()

		conv := converter.New(a.cfg, nil, st,
			converter.WithLogger(a.logger),
			converter.WithValidator(validator),
		)
		result, runErr := conv.Generate(cmd.Context(), demo.Header(demoYear, time.Now()), converter.Options{
			Owner:  demo.Owner,
			DryRun: demoDryRun,
		})
		if result != nil {
			printResult(cmd, result)
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVar(&demoYear, "year", time.Now().Year()-1, "Fiscal year of the demo file")
	demoCmd.Flags().BoolVar(&demoDryRun, "dry-run", false, "Keep the demo data in memory and write nothing")
}

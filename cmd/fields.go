package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xlsxparser"
)

var templatePath string

// fieldsCmd lists mappable fields, the targets a profile may name.
var fieldsCmd = &cobra.Command{
	Use:   "fields [model]",
	Short: "List the mappable fields of the target models",
	Long: `Without an argument, fields lists the target models. With a model name it
prints every mappable dotted path with its type and cardinality.

--xlsx writes an XLSX mapping template with one sheet per model (or only the
named model), ready to be filled with source columns.

Example Usage:
  saft fields
  saft fields Customer
  saft fields --xlsx templates/mapping.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var kinds []saft.Kind
		if len(args) == 1 {
			kind, err := saft.ParseKind(args[0])
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}

		if templatePath != "" {
			if err := xlsxparser.WriteTemplate(templatePath, kinds...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", templatePath)
			return nil
		}

		if len(kinds) == 0 {
			for _, kind := range saft.Kinds() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d fields)\n", kind, len(mapping.MappableFields(kind)))
			}
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tTYPE\tCARDINALITY")
		for _, spec := range mapping.FieldsFor(kinds[0]) {
			if spec.Excluded {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Path, spec.Type, spec.Cardinality)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	fieldsCmd.Flags().StringVar(&templatePath, "xlsx", "", "Write an XLSX mapping template to this path")
}

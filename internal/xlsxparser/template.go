package xlsxparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// =============================================================================
// TEMPLATE STRUCTURE
// =============================================================================
//
// One sheet per target model, named after the model (Customer, Supplier,
// Product, GeneralLedgerAccount, TaxTableEntry, LedgerLine). Sheets whose
// name starts with "_" are ignored.
//
//   | Column A     | Column B | Column C    | Column D      | Column E | Column F               |
//   |--------------|----------|-------------|---------------|----------|------------------------|
//   | Target Field | Type     | Cardinality | Source Column | Default  | Transformation         |
//   | CustomerID   | string   | 1           | Cod Cliente   |          | prepend_string:C       |
//   | CustomerTaxID| string   | 1           | NIF           | 999999990| extract_digits         |
//
// Type and Cardinality are informational; they are filled in by
// WriteTemplate. A row with neither a source column nor a default is skipped,
// and so is a sheet without any such row.
// Transformation is "<type>" or "<type>:<value>"; several are separated by
// "|" and applied in order.

// TemplateColumns defines which columns of a template sheet hold which data.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	TargetColumn         int
	TypeColumn           int
	CardinalityColumn    int
	SourceColumn         int
	DefaultColumn        int
	TransformationColumn int

	// DataStartRow is the 0-based row where field rows begin.
	DataStartRow int
}

// DefaultTemplateColumns returns the layout written by WriteTemplate.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		TargetColumn:         0, // Column A
		TypeColumn:           1, // Column B
		CardinalityColumn:    2, // Column C
		SourceColumn:         3, // Column D
		DefaultColumn:        4, // Column E
		TransformationColumn: 5, // Column F
		DataStartRow:         1, // Row 2
	}
}

// ErrEmptyTemplate is returned when no sheet of a template maps any field.
var ErrEmptyTemplate = errors.New("template defines no mappings")

var templateHeader = []any{"Target Field", "Type", "Cardinality", "Source Column", "Default", "Transformation"}

// =============================================================================
// TEMPLATE PARSING
// =============================================================================

// ParseTemplate reads every model sheet of a template workbook.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//
// RETURNS:
//   - One validated profile per sheet, in sheet order. Profile names are
//     "<file name>-<sheet>".
//   - An error if the workbook cannot be read or any sheet is invalid.
func ParseTemplate(templatePath string) ([]*mapping.Profile, error) {
	return ParseTemplateWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseTemplateWithConfig reads a template using a custom column layout.
func ParseTemplateWithConfig(templatePath string, columns TemplateColumns) ([]*mapping.Profile, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(templatePath), filepath.Ext(templatePath))

	var profiles []*mapping.Profile
	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		profile, err := parseTemplateSheet(f, sheetName, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		if len(profile.Mappings) == 0 && len(profile.Defaults) == 0 {
			continue
		}
		profile.ProfileName = base + "-" + sheetName

		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		if unknown, _ := mapping.UnknownTargets(profile); len(unknown) > 0 {
			return nil, fmt.Errorf("error parsing sheet '%s': unknown target fields %s", sheetName, strings.Join(unknown, ", "))
		}
		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 {
		return nil, ErrEmptyTemplate
	}
	return profiles, nil
}

// parseTemplateSheet builds the profile described by one sheet.
func parseTemplateSheet(f *excelize.File, sheetName string, columns TemplateColumns) (*mapping.Profile, error) {
	kind, err := saft.ParseKind(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet name must be a target model", err)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	profile := &mapping.Profile{
		TargetModel: kind.String(),
		Defaults:    make(map[string]string),
	}
	transformed := make(map[string]int)

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		cell := func(index int) string {
			if index >= 0 && index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		target := cell(columns.TargetColumn)
		source := cell(columns.SourceColumn)
		def := cell(columns.DefaultColumn)
		if target == "" || (source == "" && def == "") {
			continue
		}

		if source != "" {
			profile.Mappings = append(profile.Mappings, mapping.Mapping{Column: source, Target: target})
		}
		if def != "" {
			profile.Defaults[target] = def
		}

		actions, err := parseActions(cell(columns.TransformationColumn))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if len(actions) == 0 {
			continue
		}
		if source == "" {
			return nil, fmt.Errorf("row %d: transformation on %s needs a source column", i+1, target)
		}
		if idx, ok := transformed[source]; ok {
			profile.Transformations[idx].Actions = append(profile.Transformations[idx].Actions, actions...)
			continue
		}
		transformed[source] = len(profile.Transformations)
		profile.Transformations = append(profile.Transformations, mapping.Transformation{Column: source, Actions: actions})
	}

	if len(profile.Defaults) == 0 {
		profile.Defaults = nil
	}
	return profile, nil
}

// parseActions decodes "type[:value]|type[:value]...".
//
// For replace and regex_replace the value is "find=>replacement".
func parseActions(spec string) ([]mapping.Action, error) {
	if spec == "" {
		return nil, nil
	}

	var actions []mapping.Action
	for _, part := range strings.Split(spec, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		actionType, value, _ := strings.Cut(part, ":")
		action := mapping.Action{Type: strings.ToLower(strings.TrimSpace(actionType)), Value: value}

		if action.Type == "replace" || action.Type == "regex_replace" {
			find, replacement, ok := strings.Cut(value, "=>")
			if !ok {
				return nil, fmt.Errorf("%s expects \"find=>replacement\", got %q", action.Type, value)
			}
			action.Find, action.Value = find, replacement
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// =============================================================================
// TEMPLATE GENERATION
// =============================================================================

// WriteTemplate writes an empty template workbook with one sheet per kind,
// listing every mappable field with its type and cardinality.
func WriteTemplate(path string, kinds ...saft.Kind) error {
	if len(kinds) == 0 {
		kinds = saft.Kinds()
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, kind := range kinds {
		sheet := kind.String()
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := f.SetSheetRow(sheet, "A1", &templateHeader); err != nil {
			return fmt.Errorf("failed to write header of sheet %s: %w", sheet, err)
		}

		row := 2
		for _, spec := range mapping.FieldsFor(kind) {
			if spec.Excluded {
				continue
			}
			cells := []any{spec.Path, string(spec.Type), string(spec.Cardinality)}
			axis, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
				return fmt.Errorf("failed to write field %s: %w", spec.Path, err)
			}
			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

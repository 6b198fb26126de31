// =============================================================================
// SAF-T PT Generator - XLSX Parser
// =============================================================================
//
// This module reads XLSX workbooks in two roles:
//
//   1. DATA SOURCE (this file): a worksheet exported from an ERP whose header
//      row names the columns, read into mapping rows just like a CSV file.
//
//   2. MAPPING TEMPLATE (template.go): a workbook with one sheet per target
//      model that lists, for every mappable field, which source column fills
//      it, its default and an optional transformation. Each sheet becomes a
//      mapping profile.
//
// Header and data start rows follow the csv_settings of the matched profile,
// so a profile can switch between CSV and XLSX input without other changes.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// =============================================================================
// DATA STRUCTURE
// =============================================================================

// Data represents one parsed worksheet.
type Data struct {
	// Sheet is the worksheet the rows were read from.
	Sheet string

	// Headers contains the column headers.
	Headers []string

	// Rows contains the data rows as header -> value maps.
	Rows []mapping.Row

	// RowNumbers holds the 1-based worksheet row of each entry in Rows.
	RowNumbers []int

	// SourceFile is the path to the workbook.
	SourceFile string
}

// RowCount is the number of data rows.
func (d *Data) RowCount() int {
	return len(d.Rows)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ReadRows reads the data rows of one worksheet.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - sheet: The worksheet name. Empty selects the first sheet.
//   - settings: header_rows and data_start_row of the matched profile.
//
// RETURNS:
//   - A pointer to the Data struct containing the rows.
//   - An error if the workbook or the sheet cannot be read.
//
// Cell values are the formatted values excelize reports, trimmed. Rows that
// are entirely empty are skipped.
func ReadRows(path, sheet string, settings config.CSVSettings) (*Data, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	data, err := readSheet(f, sheet, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = path
	return data, nil
}

func readSheet(f *excelize.File, sheet string, settings config.CSVSettings) (*Data, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, ErrNoSheets
		}
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in workbook", sheet)
	}

	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}
	dataStart := settings.DataStartRow
	if dataStart <= headerRows {
		dataStart = headerRows + 1
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	if len(rows) < headerRows {
		return nil, fmt.Errorf("sheet %q has fewer rows than header_rows (%d)", sheet, headerRows)
	}

	data := &Data{
		Sheet:   sheet,
		Headers: mergeHeaders(rows[:headerRows]),
	}

	for i := dataStart - 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		record := make(mapping.Row, len(data.Headers))
		for col, header := range data.Headers {
			if col < len(row) {
				record[header] = strings.TrimSpace(row[col])
			} else {
				record[header] = ""
			}
		}
		data.Rows = append(data.Rows, record)
		data.RowNumbers = append(data.RowNumbers, i+1)
	}

	return data, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// mergeHeaders joins the non-empty cells of each column across the header
// rows, names empty headers Column_<n> and suffixes duplicates.
func mergeHeaders(headerRows [][]string) []string {
	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	seen := make(map[string]int, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		header := strings.Join(parts, " ")
		if header == "" {
			header = fmt.Sprintf("Column_%d", col+1)
		}
		seen[header]++
		if n := seen[header]; n > 1 {
			header = fmt.Sprintf("%s_%d", header, n)
		}
		headers[col] = header
	}
	return headers
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// SAF-T PT Generator - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports from accounting and ERP systems into rows
// for the mapping engine. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - Legacy encodings (ISO-8859-1, Windows-1252, ...), decoded to UTF-8
//   - A UTF-8 byte order mark
//
// Every row is returned as a mapping.Row (header -> trimmed value) together
// with its 1-based line number in the file, so rejected rows can be traced
// back to the source.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
)

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// Data represents a parsed CSV file.
type Data struct {
	// Headers contains the column headers. For multi-line headers these are
	// the merged headers.
	Headers []string

	// Rows contains the data rows as header -> value maps.
	Rows []mapping.Row

	// RowNumbers holds the 1-based file row of each entry in Rows.
	RowNumbers []int

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// RowCount is the number of data rows.
func (d *Data) RowCount() int {
	return len(d.Rows)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings of the matched mapping profile.
//
// RETURNS:
//   - A pointer to the Data struct containing the parsed rows.
//   - An error if the file cannot be read, decoded or parsed.
//
// PARSING PROCESS:
//   1. Open the file and decode it to UTF-8
//   2. Read and merge the header rows
//   3. Skip to the configured data start row
//   4. Convert each non-empty row to a map of header -> value
func Parse(filePath string, settings config.CSVSettings) (*Data, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV content from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*Data, error) {
	parser, err := NewStreamingParser(r, settings)
	if err != nil {
		return nil, err
	}

	data := &Data{Headers: parser.Headers()}
	for parser.Next() {
		data.Rows = append(data.Rows, parser.Row())
		data.RowNumbers = append(data.RowNumbers, parser.RowNumber())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = []rune(settings.Delimiter)[0]
		} else {
			reader.Comma = ','
		}
	}

	if settings.Comment != "" {
		reader.Comment = []rune(settings.Comment)[0]
	}

	// Exports frequently end rows early; missing cells read as "".
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = settings.LazyQuotes == nil || *settings.LazyQuotes
	reader.TrimLeadingSpace = true
}

// decoder returns a reader producing UTF-8 from r in the named encoding.
//
// CUSTOMIZATION:
//   Short aliases used in older profiles are resolved first, then any IANA
//   charset name is accepted.
func decoder(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "latin9", "iso-8859-15":
		return charmap.ISO8859_15, nil
	case "cp1252", "windows-1252", "ansi":
		return charmap.Windows1252, nil
	case "cp850", "ibm850":
		return charmap.CodePage850, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// mergeHeaders merges one or more header rows into a single set of headers.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty values of each column are joined with a space.
//
//   Row 1: "Cliente", "",     "Morada"
//   Row 2: "Codigo",  "NIF",  ""
//   Result: "Cliente Codigo", "NIF", "Morada"
func mergeHeaders(headerRows [][]string) []string {
	if len(headerRows) == 1 {
		return cleanHeaders(headerRows[0])
	}

	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers)
}

// cleanHeaders trims headers, names empty ones Column_<n> and makes
// duplicates unique with a _<n> suffix.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		seen[header]++
		if n := seen[header]; n > 1 {
			header = fmt.Sprintf("%s_%d", header, n)
		}
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads one row at a time.
//
// USAGE:
//   parser, err := NewStreamingParser(file, settings)
//   if err != nil {
//       return err
//   }
//   for parser.Next() {
//       row := parser.Row()
//       // Process the row...
//   }
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	reader     *csv.Reader
	headers    []string
	currentRow mapping.Row
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// NewStreamingParser decodes r, reads the headers and positions the parser
// before the first data row.
func NewStreamingParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}
	if settings.DataStartRow <= 0 {
		settings.DataStartRow = settings.HeaderRows + 1
	}
	if settings.DataStartRow <= settings.HeaderRows {
		return nil, fmt.Errorf("data_start_row %d must come after %d header row(s)", settings.DataStartRow, settings.HeaderRows)
	}

	decoded, err := decoder(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(decoded))
	configureReader(reader, settings)

	parser := &StreamingParser{
		reader:   reader,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}
	if err := parser.skipToDataStart(); err != nil {
		return nil, err
	}

	return parser, nil
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			if i == 0 {
				return ErrEmptyFile
			}
			return fmt.Errorf("unexpected end of file while reading header row %d", i+1)
		}
		if err != nil {
			return fmt.Errorf("failed to read header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber = p.line()
	}

	p.headers = mergeHeaders(headerRows)
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *StreamingParser) skipToDataStart() error {
	for p.rowNumber < p.settings.DataStartRow-1 {
		_, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to skip to data start: %w", err)
		}
		p.rowNumber = p.line()
	}
	return nil
}

// line returns the file line of the record just read.
func (p *StreamingParser) line() int {
	line, _ := p.reader.FieldPos(0)
	return line
}

// Next advances to the next non-empty row. Returns false when there are no
// more rows or an error occurred.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("failed to read row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber = p.line()

		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(mapping.Row, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() mapping.Row {
	return p.currentRow
}

// Headers returns the merged headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the 1-based file line of the current row.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

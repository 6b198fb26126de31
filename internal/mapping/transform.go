// =============================================================================
// SAF-T PT Generator - Column Transformations
// =============================================================================
//
// Transformations clean source values before they are mapped. They run per
// source column, in profile order, against the raw row.
//
// TRANSFORMATION TYPES:
//   - String manipulations (trim, case, prepend/append, replace, substring)
//   - Numeric formatting (zero padding, decimal normalization)
//   - Date conversions (any Go layout to YYYY-MM-DD)
//   - Lookup table replacements
//   - Empty-value fallbacks
//
// =============================================================================

package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

var knownActions = map[string]bool{
	"trim": true, "trim_left": true, "trim_right": true,
	"uppercase": true, "lowercase": true,
	"prepend_string": true, "append_string": true,
	"replace": true, "regex_replace": true, "substring": true,
	"pad_zeros_to_length": true, "remove_leading_zeros": true, "extract_digits": true,
	"normalize_whitespace": true, "normalize_decimal": true,
	"format_date": true,
	"lookup": true, "lookup_with_default": true,
	"if_empty_use_default": true, "if_empty_use_field": true,
}

var (
	reDigits     = regexp.MustCompile(`\d+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a profile's transformations to rows.
type Transformer struct {
	byColumn map[string][]Action
	order    []string
}

// NewTransformer indexes rules by column. Rules for the same column are
// concatenated in order.
func NewTransformer(rules []Transformation) *Transformer {
	t := &Transformer{byColumn: make(map[string][]Action, len(rules))}
	for _, r := range rules {
		if _, seen := t.byColumn[r.Column]; !seen {
			t.order = append(t.order, r.Column)
		}
		t.byColumn[r.Column] = append(t.byColumn[r.Column], r.Actions...)
	}
	return t
}

// Transform returns a copy of row with every configured column transformed.
// Columns absent from the row are left absent.
//
// RETURNS:
//   - The transformed row.
//   - An error naming the column and action that failed.
func (t *Transformer) Transform(row Row) (Row, error) {
	if len(t.byColumn) == 0 {
		return row, nil
	}

	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}

	for _, column := range t.order {
		value, ok := out[column]
		if !ok {
			continue
		}
		for _, action := range t.byColumn[column] {
			var err error
			value, err = ApplyAction(value, action, out)
			if err != nil {
				return nil, fmt.Errorf("transformation %q on column %q failed: %w", action.Type, column, err)
			}
		}
		out[column] = value
	}
	return out, nil
}

// ApplyAction applies a single transformation action.
//
// PARAMETERS:
//   - value: the current value.
//   - action: the action to apply.
//   - row: the whole row, for actions that read other columns.
func ApplyAction(value string, action Action, row Row) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "trim_left":
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value), nil
		}
		return strings.TrimLeft(value, " \t\r\n"), nil

	case "trim_right":
		if action.Value != "" {
			return strings.TrimRight(value, action.Value), nil
		}
		return strings.TrimRight(value, " \t\r\n"), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "prepend_string":
		// "123" + prepend "C" -> "C123"
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "substring":
		// Value is "start,end" in characters, end exclusive.
		start, end, ok := parseRange(action.Value)
		if !ok {
			return "", fmt.Errorf("substring expects \"start,end\", got %q", action.Value)
		}
		runes := []rune(value)
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return "", nil
		}
		return string(runes[start:end]), nil

	case "normalize_whitespace":
		return strings.TrimSpace(reWhitespace.ReplaceAllString(value, " ")), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// "123" padded to 9 -> "000000123"
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("pad_zeros_to_length expects a positive length, got %q", action.Value)
		}
		return PadLeft(value, n, '0'), nil

	case "remove_leading_zeros":
		trimmed := strings.TrimLeft(value, "0")
		if trimmed == "" && value != "" {
			return "0", nil
		}
		return trimmed, nil

	case "extract_digits":
		// "PT 508-025-338" -> "508025338"
		return strings.Join(reDigits.FindAllString(value, -1), ""), nil

	case "normalize_decimal":
		return NormalizeDecimal(value, action.Value), nil

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case "format_date":
		// Value is the source layout, e.g. "02/01/2006" for DD/MM/YYYY.
		// An optional "|<layout>" suffix overrides the YYYY-MM-DD output.
		value = strings.TrimSpace(value)
		if value == "" {
			return value, nil
		}
		in, out := action.Value, saft.DateLayout
		if i := strings.Index(in, "|"); i >= 0 {
			in, out = strings.TrimSpace(in[:i]), strings.TrimSpace(in[i+1:])
		}
		parsed, err := time.Parse(in, value)
		if err != nil {
			return "", fmt.Errorf("date %q does not match layout %q", value, in)
		}
		return parsed.Format(out), nil

	// =========================================================================
	// LOOKUPS AND FALLBACKS
	// =========================================================================

	case "lookup":
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			return row[action.Value], nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads s on the left with padChar up to length characters.
func PadLeft(s string, length int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

// NormalizeDecimal converts a locale-formatted number to "." decimal form.
// decimalSep is "," or "." (default: guessed from the last separator seen).
//
//	"1.234,56" -> "1234.56"
//	"1,234.56" -> "1234.56"
//	"12,5"     -> "12.5"
func NormalizeDecimal(value, decimalSep string) string {
	v := strings.NewReplacer(" ", "", "\u00a0", "").Replace(strings.TrimSpace(value))
	if v == "" {
		return v
	}

	if decimalSep == "" {
		lastComma, lastDot := strings.LastIndex(v, ","), strings.LastIndex(v, ".")
		decimalSep = "."
		if lastComma > lastDot {
			decimalSep = ","
		}
	}

	if decimalSep == "," {
		v = strings.ReplaceAll(v, ".", "")
		return strings.Replace(v, ",", ".", 1)
	}
	return strings.ReplaceAll(v, ",", "")
}

func parseRange(s string) (int, int, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

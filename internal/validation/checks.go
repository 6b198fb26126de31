package validation

import (
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Length counts characters, not bytes, as XSD length facets do.

// Text checks a mandatory string of min..max characters.
func (c *Collector) Text(field, value string, min, max int) {
	if value == "" {
		c.Fail(field, RuleRequired, nil, "is required")
		return
	}
	c.length(field, value, min, max)
}

// OptionalText checks an optional string; the empty string means absent.
func (c *Collector) OptionalText(field, value string, max int) {
	if value == "" {
		return
	}
	c.length(field, value, 1, max)
}

func (c *Collector) length(field, value string, min, max int) {
	if !XMLText(value) {
		c.Fail(field, RuleFormat, value, "contains characters XML 1.0 cannot represent")
		return
	}
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		c.Fail(field, RuleLength, value, "length must be between %d and %d characters, got %d", min, max, n)
	}
}

// Pattern checks value against re when value is present.
func (c *Collector) Pattern(field, value string, re *regexp.Regexp, description string) {
	if value == "" {
		return
	}
	if !re.MatchString(value) {
		c.Fail(field, RulePattern, value, "must be %s", description)
		return
	}
	if !XMLText(value) {
		c.Fail(field, RuleFormat, value, "contains characters XML 1.0 cannot represent")
	}
}

// XMLText reports whether s is valid UTF-8 made only of characters in the
// XML 1.0 Char production.
func XMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !IsXMLChar(r) {
			return false
		}
	}
	return true
}

// IsXMLChar reports whether r is in the XML 1.0 Char production.
func IsXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// IntRange checks min <= value <= max.
func (c *Collector) IntRange(field string, value, min, max int) {
	if value < min || value > max {
		c.Fail(field, RuleRange, value, "must be between %d and %d", min, max)
	}
}

// Money checks a monetary amount: non-negative with at most two decimals.
func (c *Collector) Money(field string, value decimal.Decimal) {
	if value.IsNegative() {
		c.Fail(field, RuleRange, value.String(), "must not be negative")
		return
	}
	if !value.Equal(value.Round(2)) {
		c.Fail(field, RuleDecimal, value.String(), "must have at most 2 decimal places")
	}
}

// Percentage checks a rate: 0 <= value <= 100 with at most two decimals.
func (c *Collector) Percentage(field string, value decimal.Decimal) {
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		c.Fail(field, RuleRange, value.String(), "must be between 0 and 100")
		return
	}
	if !value.Equal(value.Round(2)) {
		c.Fail(field, RuleDecimal, value.String(), "must have at most 2 decimal places")
	}
}

// OptionalMoney checks a monetary amount when present.
func (c *Collector) OptionalMoney(field string, value *decimal.Decimal) {
	if value != nil {
		c.Money(field, *value)
	}
}

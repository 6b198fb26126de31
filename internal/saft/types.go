package saft

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

const (
	// Namespace is the target namespace of the SAF-T PT 1.04_01 schema.
	Namespace = "urn:OECD:StandardAuditFile-Tax:PT_1.04_01"

	// AuditFileVersion is the only version this library produces.
	AuditFileVersion = "1.04_01"

	// CurrencyCode is fixed to euro.
	CurrencyCode = "EUR"

	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// Date is a calendar date without time of day or zone.
// The zero Date means "absent".
type Date struct {
	t time.Time
}

var (
	minDate = NewDate(2000, time.January, 1)
	maxDate = NewDate(9999, time.December, 31)
)

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }
func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// String renders the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDateTime accepts YYYY-MM-DDThh:mm:ss, a space separator, RFC 3339 or
// a bare date (midnight).
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateTimeLayout, "2006-01-02 15:04:05", time.RFC3339, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q: expected YYYY-MM-DDThh:mm:ss", s)
}

// FormatDateTime renders t with a T separator and no zone suffix.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseMoney parses a decimal amount using "." as the decimal point.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", s)
	}
	return d, nil
}

// Money returns a pointer to the amount parsed from s; it panics on bad input
// and is meant for literals in fixtures.
func Money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func checkDate(c *validation.Collector, field string, d Date) {
	if d.IsZero() {
		c.Fail(field, validation.RuleRequired, nil, "is required")
		return
	}
	checkDateSpan(c, field, d)
}

func checkOptionalDate(c *validation.Collector, field string, d Date) {
	if !d.IsZero() {
		checkDateSpan(c, field, d)
	}
}

func checkDateSpan(c *validation.Collector, field string, d Date) {
	if d.Before(minDate) || d.After(maxDate) {
		c.Fail(field, validation.RuleRange, d.String(), "must be between %s and %s", minDate, maxDate)
	}
}

func checkDateTime(c *validation.Collector, field string, t time.Time) {
	if t.IsZero() {
		c.Fail(field, validation.RuleRequired, nil, "is required")
		return
	}
	checkDateSpan(c, field, DateOf(t))
}

// =============================================================================
// SAF-T PT Generator - Validation Engine
// =============================================================================
//
// This module holds the error kinds and the collecting checker used by every
// domain entity in internal/saft.
//
// ERROR KINDS:
//   - FieldError:     one value violates one constraint (length, pattern,
//                     range, enumeration, lexical format). Always carries the
//                     dotted field path.
//   - AssertionError: fields are individually valid but jointly inconsistent
//                     (conditional presence, mutual exclusivity, ordering).
//
// VALIDATION STRATEGY:
//   Validation is two-phase:
//   1. Field-level: every field check runs and every failure is collected.
//   2. Invariants:  a fixed list of named checks runs over the complete
//                   candidate, again collecting every failure. Invariants only
//                   run when phase 1 produced no errors.
//
//   Errors are aggregated with go.uber.org/multierr so callers see the whole
//   list, not only the first failure.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// =============================================================================
// RULE NAMES
// =============================================================================

const (
	RuleRequired = "required"
	RuleLength   = "length"
	RulePattern  = "pattern"
	RuleRange    = "range"
	RuleEnum     = "enum"
	RuleDecimal  = "decimal"
	RuleFormat   = "format"
	RuleUnique   = "unique"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// FieldError is a single value violating a single constraint.
type FieldError struct {
	// Entity is the domain type being validated (e.g. "Customer").
	Entity string

	// Field is the dotted path of the offending field (e.g. "BillingAddress.City").
	Field string

	// Rule is the violated rule (one of the Rule* constants).
	Rule string

	// Value is the rejected value.
	Value any

	// Message is a human-readable description of the constraint.
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s.%s: %s (value: %q)", e.Entity, e.Field, e.Message, fmt.Sprint(e.Value))
}

// AssertionError is a cross-field rule violated by otherwise valid fields.
type AssertionError struct {
	// Entity is the domain type being validated.
	Entity string

	// Rule is the name of the violated invariant.
	Rule string

	// Fields lists the fields taking part in the rule.
	Fields []string

	// Message is a human-readable description naming the conflict.
	Message string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s violates %s [%s]: %s", e.Entity, e.Rule, strings.Join(e.Fields, ", "), e.Message)
}

// =============================================================================
// COLLECTOR
// =============================================================================

// Collector accumulates field errors for one entity.
type Collector struct {
	entity string
	err    error
}

// NewCollector creates a collector for the named entity.
func NewCollector(entity string) *Collector {
	return &Collector{entity: entity}
}

// Add appends an arbitrary error. Nil errors are ignored.
func (c *Collector) Add(err error) {
	c.err = multierr.Append(c.err, err)
}

// Fail records a FieldError.
func (c *Collector) Fail(field, rule string, value any, format string, args ...any) {
	c.Add(&FieldError{
		Entity:  c.entity,
		Field:   field,
		Rule:    rule,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

// Check records a FieldError when ok is false.
func (c *Collector) Check(ok bool, field, rule string, value any, format string, args ...any) {
	if !ok {
		c.Fail(field, rule, value, format, args...)
	}
}

// Nested merges the errors of a nested structure, prefixing their field
// paths with prefix and re-labelling them with this collector's entity.
func (c *Collector) Nested(prefix string, err error) {
	for _, e := range Violations(err) {
		var fe *FieldError
		var ae *AssertionError
		switch {
		case errors.As(e, &fe):
			c.Add(&FieldError{
				Entity:  c.entity,
				Field:   joinPath(prefix, fe.Field),
				Rule:    fe.Rule,
				Value:   fe.Value,
				Message: fe.Message,
			})
		case errors.As(e, &ae):
			fields := make([]string, len(ae.Fields))
			for i, f := range ae.Fields {
				fields[i] = joinPath(prefix, f)
			}
			c.Add(&AssertionError{Entity: c.entity, Rule: ae.Rule, Fields: fields, Message: ae.Message})
		default:
			c.Add(fmt.Errorf("%s: %w", prefix, e))
		}
	}
}

// Err returns the aggregated error, or nil when nothing was collected.
func (c *Collector) Err() error {
	return c.err
}

// HasErrors reports whether anything was collected.
func (c *Collector) HasErrors() bool {
	return c.err != nil
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	if field == "" {
		return prefix
	}
	return prefix + "." + field
}

// =============================================================================
// INVARIANTS
// =============================================================================

// Invariant is a named cross-field rule over a fully field-validated value.
// Check returns an empty string when the rule holds, or the violation message.
type Invariant[T any] struct {
	Name   string
	Fields []string
	Check  func(T) string
}

// CheckInvariants runs every invariant and collects all violations.
func CheckInvariants[T any](entity string, value T, invariants []Invariant[T]) error {
	var err error
	for _, inv := range invariants {
		if msg := inv.Check(value); msg != "" {
			err = multierr.Append(err, &AssertionError{
				Entity:  entity,
				Rule:    inv.Name,
				Fields:  inv.Fields,
				Message: msg,
			})
		}
	}
	return err
}

// Validate is the two-phase driver: field errors from c short-circuit the
// invariants, otherwise the invariants decide.
func Validate[T any](c *Collector, value T, invariants []Invariant[T]) error {
	if err := c.Err(); err != nil {
		return err
	}
	return CheckInvariants(c.entity, value, invariants)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Violations flattens an aggregated error into its individual violations.
// The aggregate may be wrapped with fmt.Errorf.
func Violations(err error) []error {
	if err == nil {
		return nil
	}
	var group interface{ Errors() []error }
	if errors.As(err, &group) {
		return group.Errors()
	}
	return multierr.Errors(err)
}

// FieldErrors returns every FieldError contained in err.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	for _, e := range Violations(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}

// AssertionErrors returns every AssertionError contained in err.
func AssertionErrors(err error) []*AssertionError {
	var out []*AssertionError
	for _, e := range Violations(err) {
		var ae *AssertionError
		if errors.As(e, &ae) {
			out = append(out, ae)
		}
	}
	return out
}

// IsFieldError reports whether err contains at least one FieldError.
func IsFieldError(err error) bool {
	return len(FieldErrors(err)) > 0
}

// IsAssertionError reports whether err contains at least one AssertionError.
func IsAssertionError(err error) bool {
	return len(AssertionErrors(err)) > 0
}

// FormatErrors formats violations for display or logging.
func FormatErrors(err error) string {
	violations := Violations(err)
	if len(violations) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d error(s):\n", len(violations))
	for i, v := range violations {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, v.Error())
	}
	return builder.String()
}

// =============================================================================
// SAF-T PT Generator - Mapping Engine
// =============================================================================
//
// The engine turns flat rows into validated SAF-T entities:
//
//   1. Transform: the profile's column transformations run on each row.
//   2. Nest:      each mapped column is written at its dotted target path;
//                 blank cells fall back to the profile defaults, and defaults
//                 for unmapped paths act as constants.
//   3. Build:     the nested record is parsed into the target kind and
//                 validated.
//
// ERROR ISOLATION:
//   Every row succeeds or fails on its own. A missing source column skips
//   that one field (warning); a row that fails transformation, parsing or
//   validation is dropped (error) and the next row is processed. The only
//   error Apply returns is ErrUnknownTargetModel, a configuration problem.
//
// =============================================================================

package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// ErrEmptyRow marks rows in which no mapped column was present. Such rows
// are counted in Report.Skipped, never in Report.Rejected.
var ErrEmptyRow = errors.New("no mapped column present in row")

// RowError is the rejection of one source row.
type RowError struct {
	// Row is the 1-based position of the row in the input.
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Report is the outcome of mapping a batch of rows.
type Report struct {
	Profile  string
	Kind     saft.Kind
	Total    int
	Entities []saft.Entity
	Rejected []RowError
	// Skipped lists the 1-based positions of rows without any mapped column.
	Skipped []int
	// SkippedFields counts mapped columns missing from their row.
	SkippedFields int
}

// Accepted returns the number of rows that produced an entity.
func (r *Report) Accepted() int {
	return len(r.Entities)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies mapping profiles. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	logger *log.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; nil discards.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = log.OrDiscard(logger).WithComponent("mapping")
	}
}

// WithClock sets the clock used for system-stamped fields.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply maps rows and returns only the validated entities. Compare the
// result length with len(rows) to detect rejections, or use ApplyWithReport.
func (e *Engine) Apply(rows []Row, profile *Profile) ([]saft.Entity, error) {
	report, err := e.ApplyWithReport(rows, profile)
	if err != nil {
		return nil, err
	}
	return report.Entities, nil
}

// ApplyWithReport maps rows and reports every rejection.
//
// RETURNS:
//   - A report with the accepted entities in input order.
//   - ErrUnknownTargetModel when the profile targets no known kind.
func (e *Engine) ApplyWithReport(rows []Row, profile *Profile) (*Report, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: no profile given", ErrUnknownTargetModel)
	}
	kind, err := profile.Kind()
	if err != nil {
		e.logger.Error("mapping aborted", "profile", profile.ProfileName, "error", err)
		return nil, err
	}

	skip := e.unmappableTargets(profile, kind)
	transformer := NewTransformer(profile.Transformations)
	ctx := buildContext{now: e.now().UTC().Truncate(time.Second)}

	report := &Report{Profile: profile.ProfileName, Kind: kind, Total: len(rows)}
	for i, row := range rows {
		rowNum := i + 1

		entity, err := e.mapRow(rowNum, row, profile, kind, skip, transformer, ctx, report)
		if err != nil {
			if errors.Is(err, ErrEmptyRow) {
				report.Skipped = append(report.Skipped, rowNum)
				e.logger.Warn("row skipped", "row", rowNum, "target_model", kind.String(), "reason", err.Error())
				continue
			}
			report.Rejected = append(report.Rejected, RowError{Row: rowNum, Err: err})
			e.logger.Error("row rejected",
				"row", rowNum,
				"target_model", kind.String(),
				"violations", len(validation.Violations(err)),
				"error", err,
			)
			continue
		}
		report.Entities = append(report.Entities, entity)
	}

	e.logger.Info("mapping completed",
		"profile", profile.ProfileName,
		"target_model", kind.String(),
		"rows", report.Total,
		"accepted", report.Accepted(),
		"rejected", len(report.Rejected),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func (e *Engine) mapRow(
	rowNum int,
	row Row,
	profile *Profile,
	kind saft.Kind,
	skip map[string]bool,
	transformer *Transformer,
	ctx buildContext,
	report *Report,
) (saft.Entity, error) {
	transformed, err := transformer.Transform(row)
	if err != nil {
		return nil, err
	}

	rec := Record{}
	mapped := 0
	for _, m := range profile.Mappings {
		if skip[m.Target] {
			continue
		}
		value, ok := transformed[m.Column]
		if !ok {
			report.SkippedFields++
			e.logger.Warn("source column missing, field skipped", "row", rowNum, "column", m.Column, "target", m.Target)
			continue
		}
		if strings.TrimSpace(value) == "" {
			if def, ok := profile.Defaults[m.Target]; ok {
				value = def
			}
		}
		if err := rec.Set(m.Target, value); err != nil {
			e.logger.Error("mapping conflict, field skipped", "row", rowNum, "column", m.Column, "error", err)
			continue
		}
		mapped++
	}
	if mapped == 0 {
		return nil, ErrEmptyRow
	}

	for _, target := range sortedKeys(profile.Defaults) {
		if skip[target] || rec.Has(target) {
			continue
		}
		if err := rec.Set(target, profile.Defaults[target]); err != nil {
			e.logger.Error("default conflicts with mapped field", "row", rowNum, "target", target, "error", err)
		}
	}

	return build(kind, rec, ctx)
}

// unmappableTargets logs and returns targets outside the kind's table.
func (e *Engine) unmappableTargets(profile *Profile, kind saft.Kind) map[string]bool {
	unknown, _ := UnknownTargets(profile)
	skip := make(map[string]bool, len(unknown))
	for _, target := range unknown {
		skip[target] = true
		e.logger.Warn("target is not a mappable field, ignored",
			"profile", profile.ProfileName, "target_model", kind.String(), "target", target)
	}
	return skip
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

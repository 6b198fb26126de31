// =============================================================================
// SAF-T PT Generator - Converter Module
// =============================================================================
//
// This module contains the pipeline run. It takes a set of ERP exports to a
// validated SAF-T PT file.
//
// PIPELINE:
//   1. Build the file header from the configuration
//   2. Ingest every input file concurrently:
//        match a profile, read rows (CSV or XLSX), map them to entities,
//        save the accepted entities to the store under the run's owner
//   3. Assemble the owner's stored entities into an AuditFile
//   4. Generate the XML document
//   5. Validate it against the configured XSD
//   6. Write the SAF-T file (or an error log) and archive the inputs
//   7. Write the processing summary and the metrics file
//
// CONCURRENCY:
//   Ingest runs up to max_concurrency files at once. Generation happens once,
//   after every file has been ingested.
//
// DRY RUN:
//   The owner's stored entities are copied into an in-memory store and the
//   run works on that copy. Nothing is written to disk or to the real store.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LosLebos/SAFT-T-Portugal/internal/assembly"
	"github.com/LosLebos/SAFT-T-Portugal/internal/config"
	"github.com/LosLebos/SAFT-T-Portugal/internal/csvparser"
	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/mapping"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xlsxparser"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xmlwriter"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xsdvalidator"
	"github.com/LosLebos/SAFT-T-Portugal/pkg/utils"
)

var (
	// ErrNoInputs is returned by Run when there is nothing to ingest.
	ErrNoInputs = errors.New("no input files")

	// ErrRowsRejected marks a file that had rows rejected while
	// continue_on_error is off.
	ErrRowsRejected = errors.New("rows rejected")

	// ErrIngestFailed is returned when ingest stops the run.
	ErrIngestFailed = errors.New("ingest failed")

	// ErrInvalidDocument is returned when the generated document fails
	// schema validation.
	ErrInvalidDocument = errors.New("generated document failed schema validation")
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Options controls a single run.
type Options struct {
	// DryRun validates everything and writes nothing.
	DryRun bool

	// Owner overrides the configured owner.
	Owner string

	// Profile forces one profile by name for every input.
	Profile string
}

// FileResult represents the outcome of ingesting a single file.
type FileResult struct {
	// FilePath is the path to the input file.
	FilePath string

	// Profile is the name of the matched mapping profile.
	Profile string

	// Kind is the target model of the profile.
	Kind saft.Kind

	// Rows, Accepted and Skipped count source rows. Skipped rows had no
	// mapped column at all.
	Rows     int
	Accepted int
	Skipped  int

	// Rejected lists the rejected rows with their row number in the file.
	Rejected []mapping.RowError

	// ArchivePath is set once the input has been archived.
	ArchivePath string

	// Error is nil when the file was ingested.
	Error error

	// ProcessingTime is the time taken to ingest the file.
	ProcessingTime time.Duration
}

// Output is the generated document of a run.
type Output struct {
	AuditFile  *saft.AuditFile
	Document   []byte
	Validation xsdvalidator.Report

	// OutputFile and ArchivePath are empty on dry runs and invalid documents.
	OutputFile  string
	ArchivePath string
}

// Result represents the outcome of a run.
type Result struct {
	RunID   string
	Owner   string
	DryRun  bool
	Success bool

	Files  []FileResult
	Output *Output

	// ErrorLog and SummaryLog are the paths of the written logs, if any.
	ErrorLog   string
	SummaryLog string

	StartTime time.Time
	EndTime   time.Time
}

// FailedFiles returns the results of files that were not ingested.
func (r *Result) FailedFiles() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Error != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the pipeline for one configuration. It is safe to call Run
// repeatedly; concurrent runs for the same owner are not coordinated.
type Converter struct {
	cfg       *config.MainConfig
	profiles  []*config.ProfileConfig
	store     store.Store
	engine    *mapping.Engine
	validator *xsdvalidator.Validator
	files     *utils.FileManager
	metrics   *Metrics
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger; nil discards.
func WithLogger(logger *log.Logger) Option {
	return func(c *Converter) {
		c.logger = log.OrDiscard(logger)
	}
}

// WithMetrics records runs in m instead of a private Metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Converter) {
		c.metrics = m
	}
}

// WithValidator shares a Validator and its schema cache.
func WithValidator(v *xsdvalidator.Validator) Option {
	return func(c *Converter) {
		c.validator = v
	}
}

// WithClock sets the clock used for DateCreated, system entry dates and
// file names.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - cfg: The validated main configuration.
//   - profiles: The loaded mapping profiles.
//   - st: The entity store ingested rows are saved to.
//   - opts: Optional logger, metrics, validator and clock.
//
// RETURNS:
//   - A new Converter instance.
func New(cfg *config.MainConfig, profiles []*config.ProfileConfig, st store.Store, opts ...Option) *Converter {
	c := &Converter{
		cfg:      cfg,
		profiles: profiles,
		store:    st,
		logger:   log.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics()
	}
	if c.validator == nil {
		c.validator = xsdvalidator.New(c.logger)
	}
	c.engine = mapping.NewEngine(mapping.WithLogger(c.logger), mapping.WithClock(c.now))
	c.files = utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	c.files.Now = c.now
	c.logger = c.logger.WithComponent("converter")

	return c
}

// Metrics returns the metrics the converter records into.
func (c *Converter) Metrics() *Metrics {
	return c.metrics
}

// DiscoverInputs lists the CSV and XLSX files of the input directory, and of
// its subdirectories when recursive_input is set.
func (c *Converter) DiscoverInputs() ([]string, error) {
	if c.cfg.RecursiveInput {
		return c.files.DiscoverInputFilesRecursive()
	}
	return c.files.DiscoverInputFiles()
}

// CleanArchives removes archived inputs and outputs older than maxAge.
func (c *Converter) CleanArchives(maxAge time.Duration) (int, error) {
	total := 0
	for _, dir := range []string{c.cfg.InputArchiveDir, c.cfg.OutputArchiveDir} {
		n, err := utils.CleanOldArchives(dir, maxAge)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Run ingests inputs and generates the SAF-T file for the configured header.
//
// RETURNS:
//   - The run result. It is returned together with the error whenever the
//     run got as far as ingest, so callers can report per-file outcomes.
//   - ErrNoInputs, a header or configuration error, an ErrIngestFailed or
//     ErrInvalidDocument error, or any assembly, store or XSD error.
func (c *Converter) Run(ctx context.Context, inputs []string, opts Options) (*Result, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	header, err := c.cfg.Header.BuildHeader(c.now())
	if err != nil {
		return nil, err
	}

	return c.execute(ctx, inputs, header, opts)
}

// Generate builds the SAF-T file from entities already in the store.
func (c *Converter) Generate(ctx context.Context, header saft.Header, opts Options) (*Result, error) {
	return c.execute(ctx, nil, header, opts)
}

func (c *Converter) execute(ctx context.Context, inputs []string, header saft.Header, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:     uuid.New().String(),
		Owner:     c.owner(opts),
		DryRun:    opts.DryRun,
		StartTime: c.now(),
	}
	logger := c.logger.With("run_id", result.RunID, "owner", result.Owner)
	logger.Info("Starting run", "inputs", len(inputs), "fiscal_year", header.FiscalYear, "dry_run", opts.DryRun)

	st := c.store
	if opts.DryRun {
		overlay, err := c.overlay(ctx, result.Owner)
		if err != nil {
			return nil, err
		}
		defer overlay.Close()
		st = overlay
	} else if err := c.files.EnsureDirectories(); err != nil {
		return nil, err
	}

	err := c.ingest(ctx, st, inputs, opts, result, logger)
	if err == nil {
		err = c.generate(ctx, st, header, opts, result, logger)
	}

	c.finish(result, err, opts, start, logger)
	return result, err
}

func (c *Converter) owner(opts Options) string {
	if opts.Owner != "" {
		return opts.Owner
	}
	return c.cfg.Owner
}

// overlay copies the owner's stored entities into a fresh in-memory store.
func (c *Converter) overlay(ctx context.Context, owner string) (store.Store, error) {
	mem := store.NewMemoryStore()
	for _, kind := range saft.Kinds() {
		entities, err := c.store.List(ctx, owner, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s entities: %w", kind, err)
		}
		if len(entities) == 0 {
			continue
		}
		if err := mem.Save(ctx, owner, entities...); err != nil {
			return nil, fmt.Errorf("failed to copy %s entities: %w", kind, err)
		}
	}
	return mem, nil
}

// =============================================================================
// INGEST
// =============================================================================

// ingest maps every input into st. With continue_on_error off the first
// failing file cancels the others.
func (c *Converter) ingest(ctx context.Context, st store.Store, inputs []string, opts Options, result *Result, logger *log.Logger) error {
	result.Files = make([]FileResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency())

	for i, path := range inputs {
		g.Go(func() error {
			fr := c.ingestFile(gctx, st, path, result.Owner, opts.Profile, logger)
			result.Files[i] = fr
			c.metrics.ObserveFile(fr.Error == nil)

			if fr.Error != nil && !c.cfg.ContinueOnError {
				return fmt.Errorf("%w: %s: %w", ErrIngestFailed, filepath.Base(path), fr.Error)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(inputs) > 0 && len(result.FailedFiles()) == len(inputs) {
		return fmt.Errorf("%w: all %d input files failed", ErrIngestFailed, len(inputs))
	}
	return nil
}

func (c *Converter) concurrency() int {
	if c.cfg.MaxConcurrency > 0 {
		return c.cfg.MaxConcurrency
	}
	return 1
}

// ingestFile reads, maps and stores one input file.
func (c *Converter) ingestFile(ctx context.Context, st store.Store, path, owner, profileName string, logger *log.Logger) (fr FileResult) {
	start := time.Now()
	fr.FilePath = path
	defer func() {
		fr.ProcessingTime = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		fr.Error = err
		return fr
	}

	fileName := filepath.Base(path)
	profile, err := config.MatchProfile(c.profiles, fileName, profileName)
	if err != nil {
		fr.Error = err
		logger.Warn("No profile for file", "file", fileName, "error", err)
		return fr
	}
	fr.Profile = profile.ProfileName
	logger = logger.With("file", fileName, "profile", profile.ProfileName)

	rows, rowNumbers, err := readRows(path, profile)
	if err != nil {
		fr.Error = err
		logger.Error("Failed to read file", "error", err)
		return fr
	}

	report, err := c.engine.ApplyWithReport(rows, &profile.Profile)
	if err != nil {
		fr.Error = fmt.Errorf("failed to map rows: %w", err)
		return fr
	}

	fr.Kind = report.Kind
	fr.Rows = report.Total
	fr.Accepted = report.Accepted()
	fr.Skipped = len(report.Skipped)
	for _, rej := range report.Rejected {
		// Report positions are 1-based indices into rows.
		if rej.Row >= 1 && rej.Row <= len(rowNumbers) {
			rej.Row = rowNumbers[rej.Row-1]
		}
		fr.Rejected = append(fr.Rejected, rej)
	}
	c.metrics.ObserveRows(report.Kind, fr.Rows, fr.Accepted, len(fr.Rejected))

	if len(fr.Rejected) > 0 && !c.cfg.ContinueOnError {
		fr.Error = fmt.Errorf("%w: %d of %d rows", ErrRowsRejected, len(fr.Rejected), fr.Rows)
		logger.Error("File rejected", "rejected", len(fr.Rejected), "rows", fr.Rows)
		return fr
	}

	if len(report.Entities) > 0 {
		if err := st.Save(ctx, owner, report.Entities...); err != nil {
			fr.Error = fmt.Errorf("failed to save entities: %w", err)
			return fr
		}
	}

	logger.Info("Ingested file",
		"kind", report.Kind.String(),
		"rows", fr.Rows,
		"accepted", fr.Accepted,
		"rejected", len(fr.Rejected),
		"skipped", fr.Skipped,
	)
	return fr
}

// readRows reads the data rows of path in the format the profile selects.
// The second result holds the file row number of every row.
func readRows(path string, profile *config.ProfileConfig) ([]mapping.Row, []int, error) {
	switch profile.SourceFor(path) {
	case config.SourceXLSX:
		data, err := xlsxparser.ReadRows(path, profile.Sheet, profile.CSVSettings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read workbook: %w", err)
		}
		return data.Rows, data.RowNumbers, nil
	default:
		data, err := csvparser.Parse(path, profile.CSVSettings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		return data.Rows, data.RowNumbers, nil
	}
}

// =============================================================================
// GENERATION
// =============================================================================

// generate assembles, serializes and validates the owner's entities, then
// writes the SAF-T file unless this is a dry run.
func (c *Converter) generate(ctx context.Context, st store.Store, header saft.Header, opts Options, result *Result, logger *log.Logger) error {
	debit, credit, err := c.cfg.Totals()
	if err != nil {
		return err
	}

	af, err := assembly.NewAssembler(st, c.logger).Build(ctx, result.Owner, &header, assembly.Options{
		TaxonomyReference: saft.TaxonomyReference(c.cfg.TaxonomyReference),
		TotalDebit:        debit,
		TotalCredit:       credit,
	})
	if err != nil {
		return fmt.Errorf("failed to assemble audit file: %w", err)
	}

	doc, err := xmlwriter.GenerateWithOptions(af, xmlwriter.GenerateOptions{Pretty: c.cfg.Pretty()})
	if err != nil {
		return fmt.Errorf("failed to generate XML: %w", err)
	}
	c.metrics.DocumentsGenerated.Inc()

	out := &Output{AuditFile: af, Document: doc}
	result.Output = out

	report, err := c.validator.Validate(doc, c.cfg.XSDPath)
	if err != nil {
		c.metrics.ObserveValidation("error")
		return fmt.Errorf("failed to validate generated document: %w", err)
	}
	out.Validation = report
	if !report.Valid {
		c.metrics.ObserveValidation("invalid")
		if report.HasClass(xsdvalidator.ClassSyntax) {
			return fmt.Errorf("%w: document is not well-formed XML: %d issue(s)", ErrInvalidDocument, len(report.Issues))
		}
		return fmt.Errorf("%w: %d issue(s)", ErrInvalidDocument, len(report.Issues))
	}
	c.metrics.ObserveValidation("valid")

	if opts.DryRun {
		logger.Info("Dry run: SAF-T file not written", "bytes", len(doc))
		return nil
	}

	name := c.files.OutputFileName(c.cfg.OutputFileFormat, map[string]string{
		"nif":         strconv.Itoa(header.TaxRegistrationNumber),
		"fiscal_year": strconv.Itoa(header.FiscalYear),
		"owner":       result.Owner,
	})
	path := filepath.Join(c.cfg.OutputDir, name)
	if err := utils.WriteFile(path, doc); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	out.OutputFile = path
	logger.Info("Wrote SAF-T file", "path", path, "bytes", len(doc))

	if archived, err := c.files.ArchiveOutputFile(path); err != nil {
		logger.Warn("Failed to archive SAF-T file", "path", path, "error", err)
	} else {
		out.ArchivePath = archived
	}
	return nil
}

// =============================================================================
// RUN COMPLETION
// =============================================================================

// finish archives inputs, writes the error and summary logs and exports the
// metrics. Failures here are logged; they never change the run outcome.
func (c *Converter) finish(result *Result, runErr error, opts Options, start time.Time, logger *log.Logger) {
	result.EndTime = c.now()
	result.Success = runErr == nil
	c.metrics.ObserveRun(start)

	if !opts.DryRun {
		if result.Success {
			for i := range result.Files {
				f := &result.Files[i]
				if f.Error != nil {
					continue
				}
				archived, err := c.files.ArchiveInputFile(f.FilePath)
				if err != nil {
					logger.Warn("Failed to archive input", "file", f.FilePath, "error", err)
					continue
				}
				f.ArchivePath = archived
			}
		}

		entries := errorLogEntries(result, runErr)
		if path, err := utils.WriteErrorLog(entries, c.cfg.OutputDir); err != nil {
			logger.Warn("Failed to write error log", "error", err)
		} else {
			result.ErrorLog = path
		}

		if path, err := utils.WriteSummaryLog(summarize(result), c.cfg.OutputDir); err != nil {
			logger.Warn("Failed to write summary", "error", err)
		} else {
			result.SummaryLog = path
		}
	}

	if c.cfg.MetricsFile != "" {
		if err := c.metrics.WriteToTextfile(c.cfg.MetricsFile); err != nil {
			logger.Warn("Failed to export metrics", "path", c.cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("Run failed", "files", len(result.Files), "failed", len(result.FailedFiles()), "error", runErr)
		return
	}
	logger.Info("Run completed",
		"files", len(result.Files),
		"failed", len(result.FailedFiles()),
		"duration", result.EndTime.Sub(result.StartTime).String(),
	)
}

// =============================================================================
// SAF-T PT Generator - Schema Validator
// =============================================================================
//
// Validates an XML document against an XSD (SAFTPT1_04_01.xsd in production).
//
// VALIDATION STAGES:
//   1. LOAD_SCHEMA:  compile the XSD, or reuse the cached compilation.
//                    Failure is a configuration error (*SchemaLoadError).
//   2. PARSE_XML:    well-formedness check with encoding/xml.
//                    Failure is reported as a syntax issue.
//   3. SCHEMA_CHECK: libxml2 schema validation.
//                    Every violation is reported as a schema issue.
//   4. REPORT:       Valid only when there are no issues at all.
//
// Data problems never surface as Go errors; only the schema itself failing to
// load, or libxml2 failing internally, does.
//
// =============================================================================

package xsdvalidator

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	xsdvalidate "github.com/terminalstatic/go-xsd-validate"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// Class separates malformed documents from schema violations.
type Class string

const (
	ClassSyntax Class = "syntax"
	ClassSchema Class = "schema"
)

// Issue is one located problem in the document.
type Issue struct {
	Class   Class
	Line    int
	Column  int
	Element string
	Message string
}

// String formats the issue as "L<line>:C<col> - <message>".
func (i Issue) String() string {
	return fmt.Sprintf("L%d:C%d - %s", i.Line, i.Column, i.Message)
}

// Report is the outcome of validating one document.
type Report struct {
	Valid  bool
	Issues []Issue
}

// Messages returns every issue formatted with Issue.String.
func (r Report) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.String()
	}
	return out
}

// HasClass reports whether any issue is of class c.
func (r Report) HasClass(c Class) bool {
	for _, issue := range r.Issues {
		if issue.Class == c {
			return true
		}
	}
	return false
}

// ErrSchemaLoad matches every *SchemaLoadError with errors.Is.
var ErrSchemaLoad = errors.New("failed to load XSD schema")

// SchemaLoadError is returned when the XSD is missing or does not compile.
type SchemaLoadError struct {
	Path string
	Err  error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load XSD schema %s: %v", e.Path, e.Err)
}

func (e *SchemaLoadError) Unwrap() error { return e.Err }

func (e *SchemaLoadError) Is(target error) bool { return target == ErrSchemaLoad }

// =============================================================================
// VALIDATOR
// =============================================================================

// libxml2 state. libxmlGen counts Shutdown calls; schemas compiled in an
// earlier generation are gone once libxml2 was cleaned up.
var (
	libxmlMu    sync.Mutex
	libxmlReady bool
	libxmlGen   uint64
)

// initLibxml2 initializes libxml2 unless it is already running and returns
// the current generation.
func initLibxml2() (uint64, error) {
	libxmlMu.Lock()
	defer libxmlMu.Unlock()

	if !libxmlReady {
		if err := xsdvalidate.Init(); err != nil && !strings.Contains(err.Error(), "already initialized") {
			return 0, err
		}
		libxmlReady = true
	}
	return libxmlGen, nil
}

// releaseLibxml2 cleans up libxml2; the next initLibxml2 starts a new
// generation.
func releaseLibxml2() {
	libxmlMu.Lock()
	defer libxmlMu.Unlock()

	if !libxmlReady {
		return
	}
	xsdvalidate.Cleanup()
	libxmlReady = false
	libxmlGen++
}

// currentGen reports the generation and whether libxml2 is running.
func currentGen() (uint64, bool) {
	libxmlMu.Lock()
	defer libxmlMu.Unlock()
	return libxmlGen, libxmlReady
}

// Validator validates documents against XSD files. Compiled schemas are
// cached per absolute path; a Validator is safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	handlers map[string]*xsdvalidate.XsdHandler
	gen      uint64
	logger   *log.Logger
}

// New creates a Validator. A nil logger discards.
func New(logger *log.Logger) *Validator {
	return &Validator{
		handlers: make(map[string]*xsdvalidate.XsdHandler),
		logger:   log.OrDiscard(logger).WithComponent("xsdvalidator"),
	}
}

// Validate runs the stages against the XSD at xsdPath.
//
// PARAMETERS:
//   - doc: the XML document bytes
//   - xsdPath: path to the governing XSD
//
// RETURNS:
//   - Report with Valid set only when the document is well-formed and valid
//   - *SchemaLoadError when the XSD cannot be used, or a libxml2 failure
func (v *Validator) Validate(doc []byte, xsdPath string) (Report, error) {
	handler, err := v.schema(xsdPath)
	if err != nil {
		v.logger.Error("Schema load failed", "xsd", xsdPath, "error", err)
		return Report{}, err
	}
	v.logger.Debug("Schema loaded", "xsd", xsdPath)

	if issue, ok := checkWellFormed(doc); !ok {
		v.logger.Warn("XML is not well-formed", "line", issue.Line, "error", issue.Message)
		return Report{Issues: []Issue{issue}}, nil
	}
	v.logger.Debug("XML parsed")

	issues, err := schemaCheck(handler, doc)
	if err != nil {
		return Report{}, err
	}

	report := Report{Valid: len(issues) == 0, Issues: issues}
	if report.Valid {
		v.logger.Info("XML validation successful", "xsd", xsdPath)
	} else {
		v.logger.Warn("XML validation failed", "xsd", xsdPath, "issues", len(issues))
	}
	return report, nil
}

// schema returns the cached handler for path, compiling it on first use.
func (v *Validator) schema(path string) (*xsdvalidate.XsdHandler, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &SchemaLoadError{Path: path, Err: err}
	}

	gen, err := initLibxml2()
	if err != nil {
		return nil, &SchemaLoadError{Path: path, Err: fmt.Errorf("libxml2 init: %w", err)}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.gen != gen {
		// Compiled before a Shutdown; libxml2 no longer owns them.
		clear(v.handlers)
		v.gen = gen
	}
	if h, ok := v.handlers[abs]; ok {
		return h, nil
	}

	if _, err := os.Stat(abs); err != nil {
		return nil, &SchemaLoadError{Path: path, Err: err}
	}

	h, err := xsdvalidate.NewXsdHandlerUrl(abs, xsdvalidate.ParsErrDefault)
	if err != nil {
		return nil, &SchemaLoadError{Path: path, Err: err}
	}
	v.handlers[abs] = h
	return h, nil
}

// Cached returns the number of compiled schemas held.
func (v *Validator) Cached() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.handlers)
}

// Close frees every cached schema. The Validator stays usable.
func (v *Validator) Close() {
	gen, ready := currentGen()

	v.mu.Lock()
	defer v.mu.Unlock()
	for path, h := range v.handlers {
		if ready && v.gen == gen {
			h.Free()
		}
		delete(v.handlers, path)
	}
}

// =============================================================================
// STAGES
// =============================================================================

// checkWellFormed tokenizes the whole document.
func checkWellFormed(doc []byte) (Issue, bool) {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	decoder.CharsetReader = charsetReader

	sawRoot := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, col := decoder.InputPos()
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) {
				line = syntax.Line
			}
			return Issue{Class: ClassSyntax, Line: line, Column: col, Message: "Malformed XML: " + err.Error()}, false
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawRoot = true
		}
	}

	if !sawRoot {
		line, col := decoder.InputPos()
		return Issue{Class: ClassSyntax, Line: line, Column: col, Message: "Malformed XML: no root element"}, false
	}
	return Issue{}, true
}

// charsetReader decodes non UTF-8 documents declared with an IANA charset.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// schemaCheck runs libxml2 validation and converts its diagnostics.
func schemaCheck(handler *xsdvalidate.XsdHandler, doc []byte) ([]Issue, error) {
	err := handler.ValidateMem(doc, xsdvalidate.ValidErrDefault)
	if err == nil {
		return nil, nil
	}

	var validationErr xsdvalidate.ValidationError
	if errors.As(err, &validationErr) {
		lines := bytes.Split(doc, []byte("\n"))
		issues := make([]Issue, 0, len(validationErr.Errors))
		for _, se := range validationErr.Errors {
			issues = append(issues, Issue{
				Class:   ClassSchema,
				Line:    se.Line,
				Column:  elementColumn(lines, se.Line, se.NodeName),
				Element: se.NodeName,
				Message: strings.TrimSpace(se.Message),
			})
		}
		if len(issues) == 0 {
			issues = append(issues, Issue{Class: ClassSchema, Message: strings.TrimSpace(validationErr.Error())})
		}
		return issues, nil
	}

	var parserErr xsdvalidate.XmlParserError
	if errors.As(err, &parserErr) {
		return []Issue{parserIssue(handler, doc, parserErr)}, nil
	}

	return nil, fmt.Errorf("failed to run schema validation: %w", err)
}

// parserLine matches the location prefix of libxml2 parser diagnostics,
// e.g. "Entity: line 3: parser error : Extra content at the end of the document".
var parserLine = regexp.MustCompile(`line (\d+):`)

// parserIssue turns a libxml2 parse failure into a located issue. The
// default diagnostic is only "Malformed xml document", so the document is
// parsed again with verbose errors to recover the line and the reason.
func parserIssue(handler *xsdvalidate.XsdHandler, doc []byte, parserErr error) Issue {
	text := strings.TrimSpace(parserErr.Error())

	var verbose xsdvalidate.XmlParserError
	if err := handler.ValidateMem(doc, xsdvalidate.ParsErrVerbose); errors.As(err, &verbose) {
		if msg := strings.TrimSpace(verbose.Error()); msg != "" {
			text = msg
		}
	}

	first, _, _ := strings.Cut(text, "\n")
	issue := Issue{Class: ClassSyntax}
	if m := parserLine.FindStringSubmatch(first); m != nil {
		issue.Line, _ = strconv.Atoi(m[1])
	}
	if _, reason, ok := strings.Cut(first, "parser error :"); ok {
		first = reason
	}
	issue.Message = "Malformed XML: " + strings.TrimSpace(first)
	return issue
}

// elementColumn returns the 1-based column of the start tag of name on the
// given 1-based line, or 0 when it cannot be found.
func elementColumn(lines [][]byte, line int, name string) int {
	if line < 1 || line > len(lines) || name == "" {
		return 0
	}
	text := lines[line-1]
	for _, tag := range []string{"<" + name + ">", "<" + name + " ", "<" + name + "/", "<" + name} {
		if i := bytes.Index(text, []byte(tag)); i >= 0 {
			return len([]rune(string(text[:i]))) + 1
		}
	}
	return 0
}

// =============================================================================
// PACKAGE-LEVEL HELPERS
// =============================================================================

var defaultValidator = New(nil)

// Validate checks xmlText against xsdPath with a process-wide Validator.
// It returns (true, nil) only for a well-formed, schema-valid document.
// A schema that cannot be loaded yields false and a single message.
func Validate(xmlText, xsdPath string) (bool, []string) {
	report, err := defaultValidator.Validate([]byte(xmlText), xsdPath)
	if err != nil {
		return false, []string{fmt.Sprintf("XSD schema error: %v", err)}
	}
	if report.Valid {
		return true, nil
	}
	return false, report.Messages()
}

// Shutdown frees the process-wide cache and releases libxml2. It must not run
// concurrently with a validation; the next Validate initializes libxml2 again.
func Shutdown() {
	defaultValidator.Close()
	releaseLibxml2()
}

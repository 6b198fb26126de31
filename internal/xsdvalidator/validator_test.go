package xsdvalidator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/LosLebos/SAFT-T-Portugal/internal/assembly"
	"github.com/LosLebos/SAFT-T-Portugal/internal/demo"
	"github.com/LosLebos/SAFT-T-Portugal/internal/xmlwriter"
)

const testXSD = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="Doc">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="Name" type="xs:string"/>
        <xs:element name="FiscalYear" type="xs:integer"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>
`

const validDoc = `<?xml version="1.0" encoding="UTF-8"?>
<Doc>
  <Name>Padaria</Name>
  <FiscalYear>2023</FiscalYear>
</Doc>
`

func writeXSD(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.xsd")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidDocument(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	report, err := v.Validate([]byte(validDoc), writeXSD(t, testXSD))
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestSchemaViolationNamesElementAndType(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	doc := strings.Replace(validDoc, "2023", "NOT_A_YEAR", 1)
	report, err := v.Validate([]byte(doc), writeXSD(t, testXSD))
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Issues)
	issue := report.Issues[0]
	assert.Equal(t, ClassSchema, issue.Class)
	assert.Equal(t, 4, issue.Line)
	assert.Equal(t, 3, issue.Column)
	assert.Equal(t, "FiscalYear", issue.Element)
	assert.Contains(t, issue.Message, "FiscalYear")
	assert.Contains(t, issue.Message, "atomic type")
	assert.True(t, strings.HasPrefix(report.Messages()[0], "L4:C3 - "))
}

func TestStructureViolation(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	doc := "<Doc><FiscalYear>2023</FiscalYear></Doc>"
	report, err := v.Validate([]byte(doc), writeXSD(t, testXSD))
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.True(t, report.HasClass(ClassSchema))
	assert.False(t, report.HasClass(ClassSyntax))
}

func TestMalformedXML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"unclosed tag", "<Doc>\n  <Name>x</Name>\n  <FiscalYear>2023\n</Doc>\n", 4},
		{"empty document", "", 1},
		{"invalid utf8", "<Doc><Name>\xff</Name></Doc>", 1},
	}

	v := New(nil)
	t.Cleanup(v.Close)
	xsd := writeXSD(t, testXSD)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := v.Validate([]byte(tt.doc), xsd)
			require.NoError(t, err)
			assert.False(t, report.Valid)
			require.Len(t, report.Issues, 1)
			assert.Equal(t, ClassSyntax, report.Issues[0].Class)
			assert.Equal(t, tt.line, report.Issues[0].Line)
			assert.Contains(t, report.Issues[0].Message, "Malformed XML")
		})
	}
}

func TestLatin1Document(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<Doc><Name>P\xe3o</Name><FiscalYear>2023</FiscalYear></Doc>"
	issue, ok := checkWellFormed([]byte(doc))
	assert.True(t, ok, issue.Message)
}

func TestSchemaLoadErrors(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	t.Run("missing file", func(t *testing.T) {
		_, err := v.Validate([]byte(validDoc), filepath.Join(t.TempDir(), "missing.xsd"))
		require.ErrorIs(t, err, ErrSchemaLoad)

		var loadErr *SchemaLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Contains(t, loadErr.Path, "missing.xsd")
	})

	t.Run("not a schema", func(t *testing.T) {
		_, err := v.Validate([]byte(validDoc), writeXSD(t, "<notASchema/>"))
		require.ErrorIs(t, err, ErrSchemaLoad)
	})

	assert.Equal(t, 0, v.Cached())
}

func TestSchemaCache(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)
	xsd := writeXSD(t, testXSD)

	for i := 0; i < 3; i++ {
		_, err := v.Validate([]byte(validDoc), xsd)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, v.Cached())

	v.Close()
	assert.Equal(t, 0, v.Cached())
}

func TestConcurrentValidation(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)
	xsd := writeXSD(t, testXSD)
	bad := strings.Replace(validDoc, "2023", "NOT_A_YEAR", 1)

	var g errgroup.Group
	results := make([]bool, 16)
	for i := range results {
		doc := validDoc
		if i%2 == 1 {
			doc = bad
		}
		g.Go(func() error {
			report, err := v.Validate([]byte(doc), xsd)
			results[i] = report.Valid
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, valid := range results {
		assert.Equal(t, i%2 == 0, valid, "document %d", i)
	}
	assert.Equal(t, 1, v.Cached())
}

func TestPackageValidate(t *testing.T) {
	xsd := writeXSD(t, testXSD)

	ok, errs := Validate(validDoc, xsd)
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = Validate(strings.Replace(validDoc, "2023", "NOT_A_YEAR", 1), xsd)
	assert.False(t, ok)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "FiscalYear")

	ok, errs = Validate(validDoc, filepath.Join(t.TempDir(), "nope.xsd"))
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "XSD schema error")
}

func TestValidateAfterShutdown(t *testing.T) {
	xsd := writeXSD(t, testXSD)
	v := New(nil)
	t.Cleanup(v.Close)

	ok, errs := Validate(validDoc, xsd)
	require.True(t, ok, errs)
	_, err := v.Validate([]byte(validDoc), xsd)
	require.NoError(t, err)
	require.Equal(t, 1, v.Cached())

	Shutdown()

	ok, errs = Validate(validDoc, xsd)
	assert.True(t, ok, errs)
	assert.Empty(t, errs)

	report, err := v.Validate([]byte(validDoc), xsd)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 1, v.Cached(), "schemas are compiled again")

	Shutdown()
	Shutdown()
	ok, _ = Validate(validDoc, xsd)
	assert.True(t, ok)
}

func TestLibxmlParserErrorIsLocated(t *testing.T) {
	v := New(nil)
	t.Cleanup(v.Close)

	// Two root elements pass the tokenizer and fail in libxml2.
	doc := validDoc + "<Doc/>\n"
	report, err := v.Validate([]byte(doc), writeXSD(t, testXSD))
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)

	issue := report.Issues[0]
	assert.Equal(t, ClassSyntax, issue.Class)
	assert.Positive(t, issue.Line)
	assert.Contains(t, issue.Message, "Malformed XML: ")
	assert.Contains(t, issue.Message, "Extra content")
	assert.NotContains(t, issue.Message, "Malformed xml document")
}

func TestIssueString(t *testing.T) {
	issue := Issue{Class: ClassSchema, Line: 12, Column: 5, Message: "Element 'X': boom."}
	assert.Equal(t, "L12:C5 - Element 'X': boom.", issue.String())
}

func TestElementColumn(t *testing.T) {
	lines := [][]byte{[]byte("<Doc>"), []byte("  <FiscalYear>x</FiscalYear>"), []byte("\t<Name a=\"1\"/>")}
	assert.Equal(t, 3, elementColumn(lines, 2, "FiscalYear"))
	assert.Equal(t, 2, elementColumn(lines, 3, "Name"))
	assert.Equal(t, 0, elementColumn(lines, 3, "Missing"))
	assert.Equal(t, 0, elementColumn(lines, 9, "Doc"))
}

// officialXSD returns the SAF-T PT schema path or skips the test.
func officialXSD(t *testing.T) string {
	t.Helper()
	candidates := []string{os.Getenv("SAFT_XSD_PATH"), filepath.Join("testdata", "SAFTPT1_04_01.xsd")}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("SAFTPT1_04_01.xsd not available; set SAFT_XSD_PATH")
	return ""
}

func TestGeneratedDocumentRoundTrip(t *testing.T) {
	xsd := officialXSD(t)

	entities, err := assembly.Collect(demo.Entities(2023))
	require.NoError(t, err)
	header := demo.Header(2023, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	debit, credit := demo.Totals()
	af, err := assembly.Assemble(&header, entities, assembly.Options{TotalDebit: debit, TotalCredit: credit})
	require.NoError(t, err)

	for _, pretty := range []bool{true, false} {
		out, err := xmlwriter.Generate(af, pretty)
		require.NoError(t, err)

		ok, errs := Validate(out, xsd)
		assert.True(t, ok, "pretty=%v: %v", pretty, errs)
		assert.Empty(t, errs)
	}
}

func TestOfficialSchemaRejectsBadFiscalYear(t *testing.T) {
	xsd := officialXSD(t)

	header := demo.Header(2023, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	af, err := assembly.Assemble(&header, assembly.Entities{}, assembly.Options{})
	require.NoError(t, err)
	out, err := xmlwriter.Generate(af, true)
	require.NoError(t, err)

	bad := strings.Replace(out, "<FiscalYear>2023</FiscalYear>", "<FiscalYear>NOT_A_YEAR</FiscalYear>", 1)
	ok, errs := Validate(bad, xsd)
	assert.False(t, ok)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "\n"), "FiscalYear")
	assert.Contains(t, strings.Join(errs, "\n"), "atomic type")
}

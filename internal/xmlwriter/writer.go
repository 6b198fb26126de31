// =============================================================================
// SAF-T PT Generator - XML Writer Module
// =============================================================================
//
// This module serializes a validated saft.AuditFile to SAF-T PT 1.04_01 XML.
//
// XML STRUCTURE:
//   <?xml version="1.0" encoding="UTF-8"?>
//   <AuditFile xmlns="urn:OECD:StandardAuditFile-Tax:PT_1.04_01">
//     <Header>...</Header>
//     <MasterFiles>
//       <GeneralLedgerAccounts>...</GeneralLedgerAccounts>
//       <Customer>...</Customer>        <!-- repeated, no list wrapper -->
//       <Supplier>...</Supplier>
//       <Product>...</Product>
//       <TaxTable>...</TaxTable>
//     </MasterFiles>
//     <GeneralLedgerEntries>           <!-- omitted when there are no journals -->
//       <Journal>
//         <Transaction>
//           <Lines>
//             <DebitLine>...</DebitLine>
//             <CreditLine>...</CreditLine>
//           </Lines>
//         </Transaction>
//       </Journal>
//     </GeneralLedgerEntries>
//   </AuditFile>
//
// GENERATION PROCESS:
//   1. Refuse anything that did not come out of saft.NewAuditFile
//   2. Build an element tree in the exact XSD sequence order (build.go)
//   3. Write the declaration and the tree, pretty-printed or compact
//
// The writer performs no validation of its own. Absent optional values are
// omitted entirely; there are no empty or nil-marked elements.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

var (
	// ErrNilAuditFile is returned when Generate receives nil.
	ErrNilAuditFile = errors.New("audit file is nil")

	// ErrNotValidated is returned for an AuditFile not built by saft.NewAuditFile.
	ErrNotValidated = errors.New("audit file has not been validated")
)

// Declaration is written before the root element.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Pretty enables one element per line with indentation.
	Pretty bool

	// Indent is the string used for one level of indentation when Pretty.
	// Default: "  " (two spaces)
	Indent string
}

// DefaultGenerateOptions returns pretty-printed output with two-space indent.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Pretty: true,
		Indent: "  ",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate serializes af to an XML document string.
//
// PARAMETERS:
//   - af: an AuditFile returned by saft.NewAuditFile
//   - pretty: indent the output
//
// RETURNS:
//   - the complete document, starting with the XML declaration
//   - ErrNilAuditFile or ErrNotValidated
//
// Output is deterministic: the same AuditFile and flag always give the same
// bytes.
func Generate(af *saft.AuditFile, pretty bool) (string, error) {
	opts := DefaultGenerateOptions()
	opts.Pretty = pretty
	out, err := GenerateWithOptions(af, opts)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GenerateWithOptions serializes af with custom options.
func GenerateWithOptions(af *saft.AuditFile, options GenerateOptions) ([]byte, error) {
	if af == nil {
		return nil, ErrNilAuditFile
	}
	if !af.Validated() {
		return nil, ErrNotValidated
	}
	if options.Pretty && options.Indent == "" {
		options.Indent = "  "
	}

	var buffer bytes.Buffer
	buffer.WriteString(Declaration)
	buffer.WriteString("\n")

	root := BuildDocument(af)
	writeElement(&buffer, root, options, 0)
	if !options.Pretty {
		buffer.WriteString("\n")
	}

	return buffer.Bytes(), nil
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

// Attr is one XML attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the output tree: either a leaf with Text or a parent
// with Children, never both.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// NewElement creates an empty element.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// Child appends and returns a new child element.
func (e *Element) Child(name string) *Element {
	c := NewElement(name)
	e.Children = append(e.Children, c)
	return c
}

// Add appends a leaf child holding value.
func (e *Element) Add(name, value string) *Element {
	e.Children = append(e.Children, &Element{Name: name, Text: value})
	return e
}

// Optional appends a leaf child only when value is not empty.
func (e *Element) Optional(name, value string) *Element {
	if value != "" {
		e.Add(name, value)
	}
	return e
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// writeElement writes an element and its subtree to the buffer.
func writeElement(buffer *bytes.Buffer, element *Element, options GenerateOptions, level int) {
	if options.Pretty {
		buffer.WriteString(strings.Repeat(options.Indent, level))
	}

	buffer.WriteString("<")
	buffer.WriteString(element.Name)
	for _, attr := range element.Attrs {
		buffer.WriteString(" ")
		buffer.WriteString(attr.Name)
		buffer.WriteString(`="`)
		buffer.WriteString(escapeXML(attr.Value))
		buffer.WriteString(`"`)
	}

	if len(element.Children) == 0 && element.Text == "" {
		buffer.WriteString("/>")
		newline(buffer, options)
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Text))
	} else {
		newline(buffer, options)
		for _, child := range element.Children {
			writeElement(buffer, child, options, level+1)
		}
		if options.Pretty {
			buffer.WriteString(strings.Repeat(options.Indent, level))
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">")
	newline(buffer, options)
}

func newline(buffer *bytes.Buffer, options GenerateOptions) {
	if options.Pretty {
		buffer.WriteString("\n")
	}
}

// escapeXML escapes markup characters. Validated text never holds
// characters outside the XML 1.0 Char production; any that slip through
// attribute values are dropped.
func escapeXML(s string) string {
	var buffer strings.Builder
	buffer.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		switch {
		case r == '&':
			buffer.WriteString("&amp;")
		case r == '<':
			buffer.WriteString("&lt;")
		case r == '>':
			buffer.WriteString("&gt;")
		case r == '"':
			buffer.WriteString("&quot;")
		case r == '\'':
			buffer.WriteString("&apos;")
		case r == '\r':
			buffer.WriteString("&#xD;")
		case validation.IsXMLChar(r):
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

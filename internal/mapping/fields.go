package mapping

import (
	"sort"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// FieldType is the lexical type a mapped cell is parsed as.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInt      FieldType = "int"
	TypeDecimal  FieldType = "decimal"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeEnum     FieldType = "enum"
)

// Cardinality is how often a field occurs in its parent.
type Cardinality string

const (
	Required Cardinality = "1"
	Optional Cardinality = "0..1"
	// Repeated fields accept a ";"-separated cell, or for nested
	// structures fill a single element per row.
	Repeated Cardinality = "0..n"
)

// FieldSpec describes one mappable dotted path of an entity kind.
type FieldSpec struct {
	Path        string
	Type        FieldType
	Cardinality Cardinality
	// Nested names the structure the path belongs to, e.g. "Address".
	Nested string
	// Excluded fields are filled by the system and cannot be mapped.
	Excluded bool
}

func field(path string, t FieldType, c Cardinality) FieldSpec {
	return FieldSpec{Path: path, Type: t, Cardinality: c}
}

func addressFields(prefix string, c Cardinality) []FieldSpec {
	nested := []FieldSpec{
		field("BuildingNumber", TypeString, Optional),
		field("StreetName", TypeString, Optional),
		field("AddressDetail", TypeString, Required),
		field("City", TypeString, Required),
		field("PostalCode", TypeString, Required),
		field("Region", TypeString, Optional),
		field("Country", TypeString, Required),
	}
	for i := range nested {
		nested[i].Path = prefix + "." + nested[i].Path
		nested[i].Nested = "Address"
		if c != Required {
			nested[i].Cardinality = c
		}
	}
	return nested
}

func concat(groups ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func contactFields() []FieldSpec {
	return []FieldSpec{
		field("Telephone", TypeString, Optional),
		field("Fax", TypeString, Optional),
		field("Email", TypeString, Optional),
		field("Website", TypeString, Optional),
		field("SelfBillingIndicator", TypeInt, Required),
	}
}

func transactionFields() []FieldSpec {
	fields := []FieldSpec{
		field("TransactionID", TypeString, Required),
		field("Period", TypeInt, Required),
		field("TransactionDate", TypeDate, Required),
		field("SourceID", TypeString, Required),
		field("Description", TypeString, Required),
		field("DocArchivalNumber", TypeString, Required),
		field("TransactionType", TypeEnum, Required),
		field("GLPostingDate", TypeDate, Required),
		field("CustomerID", TypeString, Optional),
		field("SupplierID", TypeString, Optional),
	}
	for i := range fields {
		fields[i].Path = "Transaction." + fields[i].Path
		fields[i].Nested = "Transaction"
	}
	return fields
}

// fieldTable is the hand-maintained metadata of every mappable kind.
var fieldTable = map[saft.Kind][]FieldSpec{
	saft.KindCustomer: concat(
		[]FieldSpec{
			field("CustomerID", TypeString, Required),
			field("AccountID", TypeString, Required),
			field("CustomerTaxID", TypeString, Required),
			field("CompanyName", TypeString, Required),
			field("Contact", TypeString, Optional),
		},
		addressFields("BillingAddress", Required),
		addressFields("ShipToAddress", Repeated),
		contactFields(),
	),
	saft.KindSupplier: concat(
		[]FieldSpec{
			field("SupplierID", TypeString, Required),
			field("AccountID", TypeString, Required),
			field("SupplierTaxID", TypeString, Required),
			field("CompanyName", TypeString, Required),
			field("Contact", TypeString, Optional),
		},
		addressFields("BillingAddress", Required),
		addressFields("ShipFromAddress", Repeated),
		contactFields(),
	),
	saft.KindProduct: {
		field("ProductType", TypeEnum, Required),
		field("ProductCode", TypeString, Required),
		field("ProductGroup", TypeString, Optional),
		field("ProductDescription", TypeString, Required),
		field("ProductNumberCode", TypeString, Required),
		{Path: "CustomsDetails.CNCode", Type: TypeString, Cardinality: Repeated, Nested: "CustomsDetails"},
		{Path: "CustomsDetails.UNNumber", Type: TypeString, Cardinality: Repeated, Nested: "CustomsDetails"},
	},
	saft.KindGeneralLedgerAccount: {
		field("AccountID", TypeString, Required),
		field("AccountDescription", TypeString, Required),
		field("OpeningDebitBalance", TypeDecimal, Required),
		field("OpeningCreditBalance", TypeDecimal, Required),
		field("ClosingDebitBalance", TypeDecimal, Required),
		field("ClosingCreditBalance", TypeDecimal, Required),
		field("GroupingCategory", TypeEnum, Required),
		field("GroupingCode", TypeString, Optional),
		field("TaxonomyCode", TypeInt, Optional),
	},
	saft.KindTaxTableEntry: {
		field("TaxType", TypeEnum, Required),
		field("TaxCountryRegion", TypeString, Required),
		field("TaxCode", TypeString, Required),
		field("Description", TypeString, Required),
		field("TaxExpirationDate", TypeDate, Optional),
		field("TaxPercentage", TypeDecimal, Optional),
		field("TaxAmount", TypeDecimal, Optional),
	},
	saft.KindLedgerLine: concat(
		[]FieldSpec{
			{Path: "Journal.JournalID", Type: TypeString, Cardinality: Required, Nested: "Journal"},
			{Path: "Journal.Description", Type: TypeString, Cardinality: Required, Nested: "Journal"},
		},
		transactionFields(),
		[]FieldSpec{
			{Path: "Line.RecordID", Type: TypeString, Cardinality: Required, Nested: "Line"},
			{Path: "Line.AccountID", Type: TypeString, Cardinality: Required, Nested: "Line"},
			{Path: "Line.SourceDocumentID", Type: TypeString, Cardinality: Optional, Nested: "Line"},
			{Path: "Line.SystemEntryDate", Type: TypeDateTime, Cardinality: Required, Nested: "Line", Excluded: true},
			{Path: "Line.Description", Type: TypeString, Cardinality: Required, Nested: "Line"},
			{Path: "Line.DebitAmount", Type: TypeDecimal, Cardinality: Optional, Nested: "Line"},
			{Path: "Line.CreditAmount", Type: TypeDecimal, Cardinality: Optional, Nested: "Line"},
		},
	),
}

// FieldsFor returns the metadata table of kind, excluded fields included.
func FieldsFor(kind saft.Kind) []FieldSpec {
	return append([]FieldSpec(nil), fieldTable[kind]...)
}

// LookupField returns the spec of path within kind.
func LookupField(kind saft.Kind, path string) (FieldSpec, bool) {
	for _, f := range fieldTable[kind] {
		if f.Path == path {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// MappableFields lists the non-excluded paths of kind in table order.
func MappableFields(kind saft.Kind) []string {
	var out []string
	for _, f := range fieldTable[kind] {
		if !f.Excluded {
			out = append(out, f.Path)
		}
	}
	return out
}

// UnknownTargets reports mapping and default targets that are not mappable
// fields of the profile's kind, sorted and without duplicates.
func UnknownTargets(p *Profile) ([]string, error) {
	kind, err := p.Kind()
	if err != nil {
		return nil, err
	}

	unknown := make(map[string]struct{})
	check := func(path string) {
		if f, ok := LookupField(kind, path); !ok || f.Excluded {
			unknown[path] = struct{}{}
		}
	}
	for _, m := range p.Mappings {
		check(m.Target)
	}
	for path := range p.Defaults {
		check(path)
	}

	out := make([]string, 0, len(unknown))
	for path := range unknown {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

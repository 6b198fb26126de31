package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// listSeparator splits repeated scalar cells such as CNCode.
const listSeparator = ";"

// reader pulls typed values out of a Record. Lexical failures are collected
// as FieldErrors with RuleFormat; missing values come back as zero values
// and are left to the entity's own validation.
type reader struct {
	rec Record
	c   *validation.Collector
}

func newReader(kind saft.Kind, rec Record) *reader {
	return &reader{rec: rec, c: validation.NewCollector(kind.String())}
}

func (r *reader) str(path string) string {
	v, _ := r.rec.Get(path)
	return strings.TrimSpace(v)
}

func (r *reader) integer(path string) int {
	v := r.str(path)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.c.Fail(path, validation.RuleFormat, v, "must be an integer")
		return 0
	}
	return n
}

func (r *reader) intPtr(path string) *int {
	if r.str(path) == "" {
		return nil
	}
	n := r.integer(path)
	return &n
}

func (r *reader) amount(path string) decimal.Decimal {
	v := r.str(path)
	if v == "" {
		r.c.Fail(path, validation.RuleRequired, nil, "is required")
		return decimal.Zero
	}
	d, err := saft.ParseMoney(v)
	if err != nil {
		r.c.Fail(path, validation.RuleFormat, v, "must be a decimal number with '.' as decimal point")
		return decimal.Zero
	}
	return d
}

func (r *reader) amountPtr(path string) *decimal.Decimal {
	if r.str(path) == "" {
		return nil
	}
	d := r.amount(path)
	return &d
}

func (r *reader) date(path string) saft.Date {
	v := r.str(path)
	if v == "" {
		return saft.Date{}
	}
	d, err := saft.ParseDate(v)
	if err != nil {
		r.c.Fail(path, validation.RuleFormat, v, "must be a date YYYY-MM-DD")
	}
	return d
}

func (r *reader) dateTime(path string, fallback time.Time) time.Time {
	v := r.str(path)
	if v == "" {
		return fallback
	}
	t, err := saft.ParseDateTime(v)
	if err != nil {
		r.c.Fail(path, validation.RuleFormat, v, "must be a date-time YYYY-MM-DDThh:mm:ss")
	}
	return t
}

func (r *reader) list(path string) []string {
	v := r.str(path)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, listSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) address(prefix string) saft.Address {
	return saft.Address{
		BuildingNumber: r.str(prefix + ".BuildingNumber"),
		StreetName:     r.str(prefix + ".StreetName"),
		AddressDetail:  r.str(prefix + ".AddressDetail"),
		City:           r.str(prefix + ".City"),
		PostalCode:     r.str(prefix + ".PostalCode"),
		Region:         r.str(prefix + ".Region"),
		Country:        r.str(prefix + ".Country"),
	}
}

// addresses yields one address per row when any field under prefix is set.
func (r *reader) addresses(prefix string) []saft.Address {
	if !r.rec.Has(prefix) {
		return nil
	}
	return []saft.Address{r.address(prefix)}
}

// =============================================================================
// BUILDERS
// =============================================================================

// buildContext carries per-run values the entities need.
type buildContext struct {
	now time.Time
}

type builder func(r *reader, ctx buildContext) saft.Entity

var builders = map[saft.Kind]builder{
	saft.KindCustomer:             buildCustomer,
	saft.KindSupplier:             buildSupplier,
	saft.KindProduct:              buildProduct,
	saft.KindGeneralLedgerAccount: buildAccount,
	saft.KindTaxTableEntry:        buildTaxEntry,
	saft.KindLedgerLine:           buildLedgerLine,
}

// build converts a record to a validated entity of kind.
func build(kind saft.Kind, rec Record, ctx buildContext) (saft.Entity, error) {
	b, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTargetModel, kind)
	}

	r := newReader(kind, rec)
	entity := b(r, ctx)
	if err := r.c.Err(); err != nil {
		return nil, err
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

func buildCustomer(r *reader, _ buildContext) saft.Entity {
	return saft.Customer{
		CustomerID:           r.str("CustomerID"),
		AccountID:            r.str("AccountID"),
		CustomerTaxID:        r.str("CustomerTaxID"),
		CompanyName:          r.str("CompanyName"),
		Contact:              r.str("Contact"),
		BillingAddress:       r.address("BillingAddress"),
		ShipToAddress:        r.addresses("ShipToAddress"),
		Telephone:            r.str("Telephone"),
		Fax:                  r.str("Fax"),
		Email:                r.str("Email"),
		Website:              r.str("Website"),
		SelfBillingIndicator: r.integer("SelfBillingIndicator"),
	}
}

func buildSupplier(r *reader, _ buildContext) saft.Entity {
	return saft.Supplier{
		SupplierID:           r.str("SupplierID"),
		AccountID:            r.str("AccountID"),
		SupplierTaxID:        r.str("SupplierTaxID"),
		CompanyName:          r.str("CompanyName"),
		Contact:              r.str("Contact"),
		BillingAddress:       r.address("BillingAddress"),
		ShipFromAddress:      r.addresses("ShipFromAddress"),
		Telephone:            r.str("Telephone"),
		Fax:                  r.str("Fax"),
		Email:                r.str("Email"),
		Website:              r.str("Website"),
		SelfBillingIndicator: r.integer("SelfBillingIndicator"),
	}
}

func buildProduct(r *reader, _ buildContext) saft.Entity {
	p := saft.Product{
		ProductType:        saft.ProductType(strings.ToUpper(r.str("ProductType"))),
		ProductCode:        r.str("ProductCode"),
		ProductGroup:       r.str("ProductGroup"),
		ProductDescription: r.str("ProductDescription"),
		ProductNumberCode:  r.str("ProductNumberCode"),
	}
	details := &saft.CustomsDetails{
		CNCode:   r.list("CustomsDetails.CNCode"),
		UNNumber: r.list("CustomsDetails.UNNumber"),
	}
	if !details.IsEmpty() {
		p.CustomsDetails = details
	}
	return p
}

func buildAccount(r *reader, _ buildContext) saft.Entity {
	return saft.GeneralLedgerAccount{
		AccountID:            r.str("AccountID"),
		AccountDescription:   r.str("AccountDescription"),
		OpeningDebitBalance:  r.amount("OpeningDebitBalance"),
		OpeningCreditBalance: r.amount("OpeningCreditBalance"),
		ClosingDebitBalance:  r.amount("ClosingDebitBalance"),
		ClosingCreditBalance: r.amount("ClosingCreditBalance"),
		GroupingCategory:     saft.GroupingCategory(strings.ToUpper(r.str("GroupingCategory"))),
		GroupingCode:         r.str("GroupingCode"),
		TaxonomyCode:         r.intPtr("TaxonomyCode"),
	}
}

func buildTaxEntry(r *reader, _ buildContext) saft.Entity {
	return saft.TaxTableEntry{
		TaxType:           saft.TaxType(strings.ToUpper(r.str("TaxType"))),
		TaxCountryRegion:  r.str("TaxCountryRegion"),
		TaxCode:           r.str("TaxCode"),
		Description:       r.str("Description"),
		TaxExpirationDate: r.date("TaxExpirationDate"),
		TaxPercentage:     r.amountPtr("TaxPercentage"),
		TaxAmount:         r.amountPtr("TaxAmount"),
	}
}

func buildLedgerLine(r *reader, ctx buildContext) saft.Entity {
	return saft.LedgerLine{
		Journal: saft.JournalRef{
			JournalID:   r.str("Journal.JournalID"),
			Description: r.str("Journal.Description"),
		},
		Transaction: saft.TransactionHeader{
			TransactionID:     r.str("Transaction.TransactionID"),
			Period:            r.integer("Transaction.Period"),
			TransactionDate:   r.date("Transaction.TransactionDate"),
			SourceID:          r.str("Transaction.SourceID"),
			Description:       r.str("Transaction.Description"),
			DocArchivalNumber: r.str("Transaction.DocArchivalNumber"),
			TransactionType:   saft.TransactionType(strings.ToUpper(r.str("Transaction.TransactionType"))),
			GLPostingDate:     r.date("Transaction.GLPostingDate"),
			CustomerID:        r.str("Transaction.CustomerID"),
			SupplierID:        r.str("Transaction.SupplierID"),
		},
		Line: saft.LineEntry{
			Line: saft.Line{
				RecordID:         r.str("Line.RecordID"),
				AccountID:        r.str("Line.AccountID"),
				SourceDocumentID: r.str("Line.SourceDocumentID"),
				SystemEntryDate:  r.dateTime("Line.SystemEntryDate", ctx.now),
				Description:      r.str("Line.Description"),
			},
			DebitAmount:  r.amountPtr("Line.DebitAmount"),
			CreditAmount: r.amountPtr("Line.CreditAmount"),
		},
	}
}

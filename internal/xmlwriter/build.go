package xmlwriter

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// Every build function appends children in the xs:sequence order of the
// SAFTPT1_04_01 schema. Reordering any Add call breaks schema validity.

// BuildDocument returns the element tree for af without any checks.
func BuildDocument(af *saft.AuditFile) *Element {
	root := NewElement("AuditFile")
	root.Attrs = []Attr{{Name: "xmlns", Value: saft.Namespace}}

	buildHeader(root.Child("Header"), af.Header)
	buildMasterFiles(root.Child("MasterFiles"), af.MasterFiles)
	if af.GeneralLedgerEntries != nil {
		buildLedger(root.Child("GeneralLedgerEntries"), *af.GeneralLedgerEntries)
	}

	return root
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func money(d decimal.Decimal) string {
	return saft.FormatMoney(d)
}

func date(d saft.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// =============================================================================
// HEADER
// =============================================================================

func buildHeader(e *Element, h saft.Header) {
	e.Add("AuditFileVersion", h.AuditFileVersion)
	e.Add("CompanyID", h.CompanyID)
	e.Add("TaxRegistrationNumber", itoa(h.TaxRegistrationNumber))
	e.Add("TaxAccountingBasis", string(h.TaxAccountingBasis))
	e.Add("CompanyName", h.CompanyName)
	e.Optional("BusinessName", h.BusinessName)
	buildAddress(e.Child("CompanyAddress"), h.CompanyAddress)
	e.Add("FiscalYear", itoa(h.FiscalYear))
	e.Add("StartDate", date(h.StartDate))
	e.Add("EndDate", date(h.EndDate))
	e.Add("CurrencyCode", h.CurrencyCode)
	e.Add("DateCreated", date(h.DateCreated))
	e.Add("TaxEntity", h.TaxEntity)
	e.Add("ProductCompanyTaxID", h.ProductCompanyTaxID)
	e.Add("SoftwareCertificateNumber", itoa(h.SoftwareCertificateNumber))
	e.Add("ProductID", h.ProductID)
	e.Add("ProductVersion", h.ProductVersion)
	e.Optional("HeaderComment", h.HeaderComment)
	e.Optional("Telephone", h.Telephone)
	e.Optional("Fax", h.Fax)
	e.Optional("Email", h.Email)
	e.Optional("Website", h.Website)
}

func buildAddress(e *Element, a saft.Address) {
	e.Optional("BuildingNumber", a.BuildingNumber)
	e.Optional("StreetName", a.StreetName)
	e.Add("AddressDetail", a.AddressDetail)
	e.Add("City", a.City)
	e.Add("PostalCode", a.PostalCode)
	e.Optional("Region", a.Region)
	e.Add("Country", a.Country)
}

// =============================================================================
// MASTER FILES
// =============================================================================

func buildMasterFiles(e *Element, mf saft.MasterFiles) {
	if mf.GeneralLedgerAccounts != nil && len(mf.GeneralLedgerAccounts.Accounts) > 0 {
		gla := e.Child("GeneralLedgerAccounts")
		gla.Add("TaxonomyReference", string(mf.GeneralLedgerAccounts.TaxonomyReference))
		for _, a := range mf.GeneralLedgerAccounts.Accounts {
			buildAccount(gla.Child("Account"), a)
		}
	}
	for _, c := range mf.Customers {
		buildCustomer(e.Child("Customer"), c)
	}
	for _, s := range mf.Suppliers {
		buildSupplier(e.Child("Supplier"), s)
	}
	for _, p := range mf.Products {
		buildProduct(e.Child("Product"), p)
	}
	if mf.TaxTable != nil && len(mf.TaxTable.Entries) > 0 {
		tt := e.Child("TaxTable")
		for _, t := range mf.TaxTable.Entries {
			buildTaxEntry(tt.Child("TaxTableEntry"), t)
		}
	}
}

func buildAccount(e *Element, a saft.GeneralLedgerAccount) {
	e.Add("AccountID", a.AccountID)
	e.Add("AccountDescription", a.AccountDescription)
	e.Add("OpeningDebitBalance", money(a.OpeningDebitBalance))
	e.Add("OpeningCreditBalance", money(a.OpeningCreditBalance))
	e.Add("ClosingDebitBalance", money(a.ClosingDebitBalance))
	e.Add("ClosingCreditBalance", money(a.ClosingCreditBalance))
	e.Add("GroupingCategory", string(a.GroupingCategory))
	e.Optional("GroupingCode", a.GroupingCode)
	if a.TaxonomyCode != nil {
		e.Add("TaxonomyCode", itoa(*a.TaxonomyCode))
	}
}

func buildCustomer(e *Element, c saft.Customer) {
	e.Add("CustomerID", c.CustomerID)
	e.Add("AccountID", c.AccountID)
	e.Add("CustomerTaxID", c.CustomerTaxID)
	e.Add("CompanyName", c.CompanyName)
	e.Optional("Contact", c.Contact)
	buildAddress(e.Child("BillingAddress"), c.BillingAddress)
	for _, a := range c.ShipToAddress {
		buildAddress(e.Child("ShipToAddress"), a)
	}
	e.Optional("Telephone", c.Telephone)
	e.Optional("Fax", c.Fax)
	e.Optional("Email", c.Email)
	e.Optional("Website", c.Website)
	e.Add("SelfBillingIndicator", itoa(c.SelfBillingIndicator))
}

func buildSupplier(e *Element, s saft.Supplier) {
	e.Add("SupplierID", s.SupplierID)
	e.Add("AccountID", s.AccountID)
	e.Add("SupplierTaxID", s.SupplierTaxID)
	e.Add("CompanyName", s.CompanyName)
	e.Optional("Contact", s.Contact)
	buildAddress(e.Child("BillingAddress"), s.BillingAddress)
	for _, a := range s.ShipFromAddress {
		buildAddress(e.Child("ShipFromAddress"), a)
	}
	e.Optional("Telephone", s.Telephone)
	e.Optional("Fax", s.Fax)
	e.Optional("Email", s.Email)
	e.Optional("Website", s.Website)
	e.Add("SelfBillingIndicator", itoa(s.SelfBillingIndicator))
}

func buildProduct(e *Element, p saft.Product) {
	e.Add("ProductType", string(p.ProductType))
	e.Add("ProductCode", p.ProductCode)
	e.Optional("ProductGroup", p.ProductGroup)
	e.Add("ProductDescription", p.ProductDescription)
	e.Add("ProductNumberCode", p.ProductNumberCode)
	if !p.CustomsDetails.IsEmpty() {
		cd := e.Child("CustomsDetails")
		for _, code := range p.CustomsDetails.CNCode {
			cd.Add("CNCode", code)
		}
		for _, code := range p.CustomsDetails.UNNumber {
			cd.Add("UNNumber", code)
		}
	}
}

func buildTaxEntry(e *Element, t saft.TaxTableEntry) {
	e.Add("TaxType", string(t.TaxType))
	e.Add("TaxCountryRegion", t.TaxCountryRegion)
	e.Add("TaxCode", t.TaxCode)
	e.Add("Description", t.Description)
	e.Optional("TaxExpirationDate", date(t.TaxExpirationDate))
	switch {
	case t.TaxPercentage != nil:
		e.Add("TaxPercentage", money(*t.TaxPercentage))
	case t.TaxAmount != nil:
		e.Add("TaxAmount", money(*t.TaxAmount))
	}
}

// =============================================================================
// GENERAL LEDGER ENTRIES
// =============================================================================

func buildLedger(e *Element, g saft.GeneralLedgerEntries) {
	e.Add("NumberOfEntries", itoa(g.NumberOfEntries))
	e.Add("TotalDebit", money(g.TotalDebit))
	e.Add("TotalCredit", money(g.TotalCredit))
	for _, j := range g.Journals {
		je := e.Child("Journal")
		je.Add("JournalID", j.JournalID)
		je.Add("Description", j.Description)
		for _, t := range j.Transactions {
			buildTransaction(je.Child("Transaction"), t)
		}
	}
}

func buildTransaction(e *Element, t saft.Transaction) {
	e.Add("TransactionID", t.TransactionID)
	e.Add("Period", itoa(t.Period))
	e.Add("TransactionDate", date(t.TransactionDate))
	e.Add("SourceID", t.SourceID)
	e.Add("Description", t.Description)
	e.Add("DocArchivalNumber", t.DocArchivalNumber)
	e.Add("TransactionType", string(t.TransactionType))
	e.Add("GLPostingDate", date(t.GLPostingDate))
	e.Optional("CustomerID", t.CustomerID)
	e.Optional("SupplierID", t.SupplierID)

	lines := e.Child("Lines")
	for _, l := range t.Lines.DebitLines {
		le := lines.Child("DebitLine")
		buildLine(le, l.Line)
		le.Add("DebitAmount", money(l.DebitAmount))
	}
	for _, l := range t.Lines.CreditLines {
		le := lines.Child("CreditLine")
		buildLine(le, l.Line)
		le.Add("CreditAmount", money(l.CreditAmount))
	}
}

func buildLine(e *Element, l saft.Line) {
	e.Add("RecordID", l.RecordID)
	e.Add("AccountID", l.AccountID)
	e.Optional("SourceDocumentID", l.SourceDocumentID)
	e.Add("SystemEntryDate", saft.FormatDateTime(l.SystemEntryDate))
	e.Add("Description", l.Description)
}

// =============================================================================
// SAF-T PT Generator - Demo Data Set
// =============================================================================
//
// A small, fully valid data set used by the `demo` command to show the whole
// pipeline without any input files: a company header, master files for a
// fictional bakery and a handful of ledger postings.
//
// Every entity returned here passes its own Validate; the demo tests assert
// that, so a broken rule in internal/saft shows up here first.
//
// =============================================================================

package demo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// Owner is the store owner the demo data is seeded under.
const Owner = "demo"

// Header returns the demo company header for fiscalYear. created is the
// DateCreated value; pass the run date.
func Header(fiscalYear int, created time.Time) saft.Header {
	return saft.Header{
		AuditFileVersion:      saft.AuditFileVersion,
		CompanyID:             "999000001",
		TaxRegistrationNumber: 999000001,
		TaxAccountingBasis:    saft.BasisAccounting,
		CompanyName:           "Demo Company SA",
		BusinessName:          "Padaria Demo",
		CompanyAddress: saft.Address{
			BuildingNumber: "123",
			StreetName:     "Rua Ficticia",
			AddressDetail:  "Rua Ficticia 123",
			City:           "Lisboa",
			PostalCode:     "1000-001",
			Country:        "PT",
		},
		FiscalYear:                fiscalYear,
		StartDate:                 saft.NewDate(fiscalYear, time.January, 1),
		EndDate:                   saft.NewDate(fiscalYear, time.December, 31),
		CurrencyCode:              saft.CurrencyCode,
		DateCreated:               saft.DateOf(created),
		TaxEntity:                 saft.GlobalTaxEntity,
		ProductCompanyTaxID:       "500000000",
		SoftwareCertificateNumber: 0,
		ProductID:                 "SAFT-T-Portugal/LosLebos",
		ProductVersion:            "1.0.0",
		HeaderComment:             "SAF-T PT demo file",
		Telephone:                 "+351210000000",
		Email:                     "demo@example.com",
		Website:                   "www.example.com",
	}
}

// Customers returns the demo customers.
func Customers() []saft.Customer {
	return []saft.Customer{
		{
			CustomerID:    "DEMOCUST001",
			AccountID:     "211001",
			CustomerTaxID: "999000011",
			CompanyName:   "Gadgets & Gizmos Lda",
			BillingAddress: saft.Address{
				AddressDetail: "1 Demo Street",
				City:          "Demoville",
				PostalCode:    "1000-001",
				Country:       "PT",
			},
			ShipToAddress: []saft.Address{{
				AddressDetail: "Armazem 4, Zona Industrial",
				City:          "Setubal",
				PostalCode:    "2910-001",
				Country:       "PT",
			}},
			SelfBillingIndicator: 0,
		},
		{
			CustomerID:    "DEMOCUST002",
			AccountID:     saft.Unknown,
			CustomerTaxID: saft.FinalConsumerNIF,
			CompanyName:   saft.FinalConsumer,
			BillingAddress: saft.Address{
				AddressDetail: saft.Unknown,
				City:          saft.Unknown,
				PostalCode:    saft.Unknown,
				Country:       saft.Unknown,
			},
			SelfBillingIndicator: 0,
		},
	}
}

// Suppliers returns the demo suppliers.
func Suppliers() []saft.Supplier {
	return []saft.Supplier{
		{
			SupplierID:    "DEMOSUP001",
			AccountID:     "221001",
			SupplierTaxID: "980000010",
			CompanyName:   "Global Parts Co",
			BillingAddress: saft.Address{
				AddressDetail: "1 Supply Route",
				City:          "Madrid",
				PostalCode:    "28001",
				Country:       "ES",
			},
		},
		{
			SupplierID:    "DEMOSUP002",
			AccountID:     "221002",
			SupplierTaxID: "980000020",
			CompanyName:   "Material World",
			BillingAddress: saft.Address{
				AddressDetail: "10 Resource Blvd",
				City:          "Paris",
				PostalCode:    "75001",
				Country:       "FR",
			},
			SelfBillingIndicator: 1,
		},
	}
}

// Products returns the demo products.
func Products() []saft.Product {
	return []saft.Product{
		{
			ProductType:        saft.ProductGoods,
			ProductCode:        "DEMOPROD001",
			ProductGroup:       "Padaria",
			ProductDescription: "Standard Widget",
			ProductNumberCode:  "SW001",
		},
		{
			ProductType:        saft.ProductServices,
			ProductCode:        "DEMOSERV001",
			ProductDescription: "Basic Service Package",
			ProductNumberCode:  "BSP001",
		},
		{
			ProductType:        saft.ProductGoods,
			ProductCode:        "DEMOPROD002",
			ProductDescription: "Advanced Gadget",
			ProductNumberCode:  "AG002",
			CustomsDetails: &saft.CustomsDetails{
				CNCode:   []string{"84713000"},
				UNNumber: []string{"3480"},
			},
		},
	}
}

func balance(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Accounts returns a small chart of accounts covering the three GL
// grouping categories.
func Accounts() []saft.GeneralLedgerAccount {
	return []saft.GeneralLedgerAccount{
		{
			AccountID:            "11",
			AccountDescription:   "Caixa",
			OpeningDebitBalance:  balance("1000.00"),
			OpeningCreditBalance: decimal.Zero,
			ClosingDebitBalance:  balance("1123.00"),
			ClosingCreditBalance: decimal.Zero,
			GroupingCategory:     saft.CategoryGR,
		},
		{
			AccountID:            "111",
			AccountDescription:   "Caixa Sede",
			OpeningDebitBalance:  balance("1000.00"),
			OpeningCreditBalance: decimal.Zero,
			ClosingDebitBalance:  balance("1123.00"),
			ClosingCreditBalance: decimal.Zero,
			GroupingCategory:     saft.CategoryGA,
			GroupingCode:         "11",
		},
		{
			AccountID:            "111001",
			AccountDescription:   "Caixa Sede Lisboa",
			OpeningDebitBalance:  balance("1000.00"),
			OpeningCreditBalance: decimal.Zero,
			ClosingDebitBalance:  balance("1123.00"),
			ClosingCreditBalance: decimal.Zero,
			GroupingCategory:     saft.CategoryGM,
			GroupingCode:         "111",
			TaxonomyCode:         saft.IntPtr(1),
		},
		{
			AccountID:            "711001",
			AccountDescription:   "Vendas Mercadorias",
			OpeningDebitBalance:  decimal.Zero,
			OpeningCreditBalance: decimal.Zero,
			ClosingDebitBalance:  decimal.Zero,
			ClosingCreditBalance: balance("100.00"),
			GroupingCategory:     saft.CategoryGM,
			GroupingCode:         "71",
			TaxonomyCode:         saft.IntPtr(512),
		},
		{
			AccountID:            "243001",
			AccountDescription:   "IVA Liquidado",
			OpeningDebitBalance:  decimal.Zero,
			OpeningCreditBalance: decimal.Zero,
			ClosingDebitBalance:  decimal.Zero,
			ClosingCreditBalance: balance("23.00"),
			GroupingCategory:     saft.CategoryGM,
			GroupingCode:         "243",
			TaxonomyCode:         saft.IntPtr(89),
		},
	}
}

// TaxTable returns the mainland VAT rates.
func TaxTable() []saft.TaxTableEntry {
	return []saft.TaxTableEntry{
		{TaxType: saft.TaxIVA, TaxCountryRegion: "PT", TaxCode: "NOR", Description: "Taxa normal", TaxPercentage: saft.Money("23")},
		{TaxType: saft.TaxIVA, TaxCountryRegion: "PT", TaxCode: "INT", Description: "Taxa intermedia", TaxPercentage: saft.Money("13")},
		{TaxType: saft.TaxIVA, TaxCountryRegion: "PT", TaxCode: "RED", Description: "Taxa reduzida", TaxPercentage: saft.Money("6")},
		{TaxType: saft.TaxIVA, TaxCountryRegion: "PT", TaxCode: "ISE", Description: "Isenta", TaxPercentage: saft.Money("0")},
		{TaxType: saft.TaxIS, TaxCountryRegion: "PT", TaxCode: "ISC", Description: "Imposto do selo verba 17", TaxAmount: saft.Money("0.50")},
	}
}

// LedgerLines returns one balanced sale posted on the first working day of
// fiscalYear: cash debit against sales and VAT credits.
func LedgerLines(fiscalYear int) []saft.LedgerLine {
	day := saft.NewDate(fiscalYear, time.January, 2)
	entered := time.Date(fiscalYear, time.January, 2, 9, 15, 0, 0, time.UTC)
	header := saft.TransactionHeader{
		TransactionID:     day.String() + " VND 0001",
		Period:            1,
		TransactionDate:   day,
		SourceID:          "demo",
		Description:       "Venda a dinheiro",
		DocArchivalNumber: "VND0001",
		TransactionType:   saft.TransactionNormal,
		GLPostingDate:     day,
		CustomerID:        "DEMOCUST001",
	}
	journal := saft.JournalRef{JournalID: "VND", Description: "Diario de vendas"}

	line := func(record, account, desc string, debit, credit *decimal.Decimal) saft.LedgerLine {
		return saft.LedgerLine{
			Journal:     journal,
			Transaction: header,
			Line: saft.LineEntry{
				Line: saft.Line{
					RecordID:        record,
					AccountID:       account,
					SystemEntryDate: entered,
					Description:     desc,
				},
				DebitAmount:  debit,
				CreditAmount: credit,
			},
		}
	}

	return []saft.LedgerLine{
		line("1", "111001", "Recebimento", saft.Money("123.00"), nil),
		line("2", "711001", "Venda de mercadorias", nil, saft.Money("100.00")),
		line("3", "243001", "IVA taxa normal", nil, saft.Money("23.00")),
	}
}

// Entities returns every demo master file entity and ledger line, ready to
// be saved to a store.
func Entities(fiscalYear int) []saft.Entity {
	var out []saft.Entity
	for _, c := range Customers() {
		out = append(out, c)
	}
	for _, s := range Suppliers() {
		out = append(out, s)
	}
	for _, p := range Products() {
		out = append(out, p)
	}
	for _, a := range Accounts() {
		out = append(out, a)
	}
	for _, t := range TaxTable() {
		out = append(out, t)
	}
	for _, l := range LedgerLines(fiscalYear) {
		out = append(out, l)
	}
	return out
}

// Totals returns the debit and credit totals of LedgerLines.
func Totals() (debit, credit decimal.Decimal) {
	return balance("123.00"), balance("123.00")
}

package saft_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

func validHeader() saft.Header {
	return saft.Header{
		AuditFileVersion:      saft.AuditFileVersion,
		CompanyID:             "508025338",
		TaxRegistrationNumber: 508025338,
		TaxAccountingBasis:    saft.BasisAccounting,
		CompanyName:           "Padaria Central Lda",
		CompanyAddress: saft.Address{
			AddressDetail: "Rua Augusta 100",
			City:          "Lisboa",
			PostalCode:    "1100-053",
			Country:       "PT",
		},
		FiscalYear:                2023,
		StartDate:                 saft.NewDate(2023, time.January, 1),
		EndDate:                   saft.NewDate(2023, time.December, 31),
		CurrencyCode:              saft.CurrencyCode,
		DateCreated:               saft.NewDate(2024, time.January, 15),
		TaxEntity:                 saft.GlobalTaxEntity,
		ProductCompanyTaxID:       "508025338",
		SoftwareCertificateNumber: 0,
		ProductID:                 "SAFT-T-Portugal/LosLebos",
		ProductVersion:            "1.0.0",
	}
}

func validCustomer() saft.Customer {
	return saft.Customer{
		CustomerID:    "C001",
		AccountID:     "211101",
		CustomerTaxID: "123456789",
		CompanyName:   "Cliente Exemplo SA",
		BillingAddress: saft.Address{
			AddressDetail: "Avenida da Liberdade 1",
			City:          "Lisboa",
			PostalCode:    "1250-096",
			Country:       "PT",
		},
		SelfBillingIndicator: 0,
	}
}

func validSupplier() saft.Supplier {
	return saft.Supplier{
		SupplierID:    "F001",
		AccountID:     "221101",
		SupplierTaxID: "500100144",
		CompanyName:   "Moagem do Norte Lda",
		BillingAddress: saft.Address{
			AddressDetail: "Rua do Porto 20",
			City:          "Porto",
			PostalCode:    "4000-322",
			Country:       "PT",
		},
	}
}

func validProduct() saft.Product {
	return saft.Product{
		ProductType:        saft.ProductGoods,
		ProductCode:        "PAO01",
		ProductDescription: "Pao de forma",
		ProductNumberCode:  "5601234567890",
	}
}

func validAccount(category saft.GroupingCategory) saft.GeneralLedgerAccount {
	a := saft.GeneralLedgerAccount{
		AccountID:            "11",
		AccountDescription:   "Caixa",
		OpeningDebitBalance:  decimal.Zero,
		OpeningCreditBalance: decimal.Zero,
		ClosingDebitBalance:  decimal.RequireFromString("150.25"),
		ClosingCreditBalance: decimal.Zero,
		GroupingCategory:     category,
	}
	switch category {
	case saft.CategoryGA, saft.CategoryAA, saft.CategoryAM:
		a.AccountID = "111"
		a.GroupingCode = "11"
	case saft.CategoryGM:
		a.AccountID = "1111"
		a.GroupingCode = "111"
		a.TaxonomyCode = saft.IntPtr(1)
	}
	return a
}

func validTaxEntry() saft.TaxTableEntry {
	return saft.TaxTableEntry{
		TaxType:          saft.TaxIVA,
		TaxCountryRegion: "PT",
		TaxCode:          "NOR",
		Description:      "Taxa normal",
		TaxPercentage:    saft.Money("23"),
	}
}

func validLedgerLine() saft.LedgerLine {
	return saft.LedgerLine{
		Journal: saft.JournalRef{JournalID: "VND", Description: "Vendas"},
		Transaction: saft.TransactionHeader{
			TransactionID:     "2023-03-15 VND 0001",
			Period:            3,
			TransactionDate:   saft.NewDate(2023, time.March, 15),
			SourceID:          "admin",
			Description:       "Venda a dinheiro",
			DocArchivalNumber: "0001",
			TransactionType:   saft.TransactionNormal,
			GLPostingDate:     saft.NewDate(2023, time.March, 15),
			CustomerID:        "C001",
		},
		Line: saft.LineEntry{
			Line: saft.Line{
				RecordID:        "1",
				AccountID:       "1111",
				SystemEntryDate: time.Date(2023, time.March, 15, 10, 30, 0, 0, time.UTC),
				Description:     "Recebimento",
			},
			DebitAmount: saft.Money("12.30"),
		},
	}
}

func validTransaction() saft.Transaction {
	l := validLedgerLine()
	return saft.Transaction{
		TransactionHeader: l.Transaction,
		Lines: saft.Lines{
			DebitLines: []saft.DebitLine{{Line: l.Line.Line, DebitAmount: decimal.RequireFromString("12.30")}},
			CreditLines: []saft.CreditLine{{
				Line: saft.Line{
					RecordID:        "2",
					AccountID:       "7111",
					SystemEntryDate: l.Line.SystemEntryDate,
					Description:     "Venda",
				},
				CreditAmount: decimal.RequireFromString("12.30"),
			}},
		},
	}
}

package assembly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LosLebos/SAFT-T-Portugal/internal/demo"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

func testHeader() *saft.Header {
	h := demo.Header(2023, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	return &h
}

// ledgerLine returns a copy of a demo line with a different transaction
// and record id.
func ledgerLine(txn, record string, debit bool) saft.LedgerLine {
	l := demo.LedgerLines(2023)[0]
	l.Transaction.TransactionID = "2023-01-02 VND " + txn
	l.Transaction.DocArchivalNumber = txn
	l.Line.RecordID = record
	if debit {
		l.Line.DebitAmount, l.Line.CreditAmount = saft.Money("10.00"), nil
	} else {
		l.Line.DebitAmount, l.Line.CreditAmount = nil, saft.Money("10.00")
	}
	return l
}

func TestCollect(t *testing.T) {
	entities, err := Collect(demo.Entities(2023))
	require.NoError(t, err)

	assert.Len(t, entities.Customers, 2)
	assert.Len(t, entities.Suppliers, 2)
	assert.Len(t, entities.Products, 3)
	assert.Len(t, entities.Accounts, 5)
	assert.Len(t, entities.TaxEntries, 5)
	assert.Len(t, entities.LedgerLines, 3)
	assert.Equal(t, 5, entities.Count(saft.KindTaxTableEntry))
	assert.Equal(t, 0, entities.Count(saft.KindUnknown))

	assert.Equal(t, "DEMOCUST001", entities.Customers[0].CustomerID)
	assert.Equal(t, "DEMOCUST002", entities.Customers[1].CustomerID)
}

func TestCollectRejectsNil(t *testing.T) {
	_, err := Collect([]saft.Entity{demo.Customers()[0], nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity 1")
}

func TestGroupLedger(t *testing.T) {
	t.Run("empty input has no journals", func(t *testing.T) {
		journals, err := GroupLedger(nil)
		require.NoError(t, err)
		assert.Nil(t, journals)
	})

	t.Run("keeps first-seen order", func(t *testing.T) {
		other := ledgerLine("0002", "1", true)
		other.Journal = saft.JournalRef{JournalID: "CMP", Description: "Compras"}
		other.Transaction.TransactionID = "2023-01-02 CMP 0002"
		other.Transaction.CustomerID = ""
		other.Transaction.SupplierID = "DEMOSUP001"

		lines := []saft.LedgerLine{
			ledgerLine("0001", "1", true),
			other,
			ledgerLine("0003", "1", false),
			ledgerLine("0001", "2", false),
			ledgerLine("0001", "3", true),
		}

		journals, err := GroupLedger(lines)
		require.NoError(t, err)
		require.Len(t, journals, 2)

		assert.Equal(t, "VND", journals[0].JournalID)
		assert.Equal(t, "CMP", journals[1].JournalID)
		require.Len(t, journals[0].Transactions, 2)
		assert.Equal(t, "2023-01-02 VND 0001", journals[0].Transactions[0].TransactionID)
		assert.Equal(t, "2023-01-02 VND 0003", journals[0].Transactions[1].TransactionID)

		first := journals[0].Transactions[0]
		require.Len(t, first.Lines.DebitLines, 2)
		require.Len(t, first.Lines.CreditLines, 1)
		assert.Equal(t, "1", first.Lines.DebitLines[0].RecordID)
		assert.Equal(t, "3", first.Lines.DebitLines[1].RecordID)
		assert.Equal(t, "2", first.Lines.CreditLines[0].RecordID)
		assert.Equal(t, "10.00", saft.FormatMoney(first.Lines.CreditLines[0].CreditAmount))

		assert.Equal(t, 3, CountTransactions(journals))
	})

	t.Run("conflicting header", func(t *testing.T) {
		a := ledgerLine("0001", "1", true)
		b := ledgerLine("0001", "2", false)
		b.Transaction.Period = 2
		b.Transaction.Description = "Outra"

		_, err := GroupLedger([]saft.LedgerLine{a, b})
		require.ErrorIs(t, err, ErrConflictingTransaction)
		assert.Contains(t, err.Error(), "Period 1 vs 2")
		assert.Contains(t, err.Error(), "Description")
	})

	t.Run("transaction in two journals", func(t *testing.T) {
		a := ledgerLine("0001", "1", true)
		b := ledgerLine("0001", "2", false)
		b.Journal = saft.JournalRef{JournalID: "CMP", Description: "Compras"}

		_, err := GroupLedger([]saft.LedgerLine{a, b})
		require.ErrorIs(t, err, ErrConflictingTransaction)
		assert.Contains(t, err.Error(), "journals VND and CMP")
	})

	t.Run("conflicting journal description", func(t *testing.T) {
		a := ledgerLine("0001", "1", true)
		b := ledgerLine("0002", "1", false)
		b.Journal.Description = "Vendas a credito"

		_, err := GroupLedger([]saft.LedgerLine{a, b})
		require.ErrorIs(t, err, ErrConflictingTransaction)
	})
}

func TestAssemble(t *testing.T) {
	entities, err := Collect(demo.Entities(2023))
	require.NoError(t, err)
	debit, credit := demo.Totals()

	af, err := Assemble(testHeader(), entities, Options{TotalDebit: debit, TotalCredit: credit})
	require.NoError(t, err)
	require.True(t, af.Validated())

	require.NotNil(t, af.MasterFiles.GeneralLedgerAccounts)
	assert.Equal(t, saft.TaxonomySNC, af.MasterFiles.GeneralLedgerAccounts.TaxonomyReference)
	assert.Len(t, af.MasterFiles.GeneralLedgerAccounts.Accounts, 5)
	require.NotNil(t, af.MasterFiles.TaxTable)
	assert.Len(t, af.MasterFiles.TaxTable.Entries, 5)

	require.NotNil(t, af.GeneralLedgerEntries)
	assert.Equal(t, 1, af.GeneralLedgerEntries.NumberOfEntries)
	assert.Equal(t, "123.00", saft.FormatMoney(af.GeneralLedgerEntries.TotalDebit))
	assert.Equal(t, "123.00", saft.FormatMoney(af.GeneralLedgerEntries.TotalCredit))
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	entities := Entities{Customers: demo.Customers()}

	af, err := Assemble(testHeader(), entities, Options{TaxonomyReference: saft.TaxonomyMicro})
	require.NoError(t, err)

	assert.Len(t, af.MasterFiles.Customers, 2)
	assert.Nil(t, af.MasterFiles.GeneralLedgerAccounts)
	assert.Nil(t, af.MasterFiles.Suppliers)
	assert.Nil(t, af.MasterFiles.Products)
	assert.Nil(t, af.MasterFiles.TaxTable)
	assert.Nil(t, af.GeneralLedgerEntries)
}

func TestAssembleTotalsDefaultToZero(t *testing.T) {
	entities := Entities{LedgerLines: demo.LedgerLines(2023)}

	af, err := Assemble(testHeader(), entities, Options{})
	require.NoError(t, err)
	require.NotNil(t, af.GeneralLedgerEntries)
	assert.True(t, af.GeneralLedgerEntries.TotalDebit.Equal(decimal.Zero))
	assert.Equal(t, "0.00", saft.FormatMoney(af.GeneralLedgerEntries.TotalCredit))
}

func TestAssembleErrors(t *testing.T) {
	t.Run("nil header", func(t *testing.T) {
		_, err := Assemble(nil, Entities{}, Options{})
		require.ErrorIs(t, err, saft.ErrNilHeader)
	})

	t.Run("duplicate customers", func(t *testing.T) {
		c := demo.Customers()[0]
		_, err := Assemble(testHeader(), Entities{Customers: []saft.Customer{c, c}}, Options{})
		require.Error(t, err)

		violations := validation.AssertionErrors(err)
		require.Len(t, violations, 1)
		assert.Equal(t, "UniqueCustomerID", violations[0].Rule)
	})

	t.Run("conflicting ledger", func(t *testing.T) {
		a := ledgerLine("0001", "1", true)
		b := ledgerLine("0001", "2", false)
		b.Transaction.SourceID = "other"
		_, err := Assemble(testHeader(), Entities{LedgerLines: []saft.LedgerLine{a, b}}, Options{})
		require.True(t, errors.Is(err, ErrConflictingTransaction))
	})
}

func TestAssemblerBuild(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, demo.Owner, demo.Entities(2023)...))
	require.NoError(t, s.Save(ctx, "someone-else", demo.Suppliers()[0]))

	a := NewAssembler(s, nil)
	af, err := a.Build(ctx, demo.Owner, testHeader(), Options{})
	require.NoError(t, err)
	assert.Len(t, af.MasterFiles.Customers, 2)
	assert.Len(t, af.MasterFiles.Suppliers, 2)
	require.NotNil(t, af.GeneralLedgerEntries)
	assert.Len(t, af.GeneralLedgerEntries.Journals, 1)

	other, err := a.Build(ctx, "someone-else", testHeader(), Options{})
	require.NoError(t, err)
	assert.Len(t, other.MasterFiles.Suppliers, 1)
	assert.Nil(t, other.MasterFiles.Customers)
	assert.Nil(t, other.GeneralLedgerEntries)
}

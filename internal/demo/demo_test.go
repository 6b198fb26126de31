package demo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

func TestHeaderIsValid(t *testing.T) {
	h := Header(2023, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, h.Validate())
	assert.Equal(t, "2023-01-01", h.StartDate.String())
	assert.Equal(t, "2024-02-01", h.DateCreated.String())
}

func TestEntitiesAreValid(t *testing.T) {
	entities := Entities(2023)
	require.NotEmpty(t, entities)

	keys := map[string]bool{}
	for _, e := range entities {
		assert.NoError(t, e.Validate(), "%s %s", e.Kind(), e.Key())
		id := e.Kind().String() + "/" + e.Key()
		assert.False(t, keys[id], "duplicate entity %s", id)
		keys[id] = true
	}
}

func TestEntityCounts(t *testing.T) {
	counts := map[saft.Kind]int{}
	for _, e := range Entities(2023) {
		counts[e.Kind()]++
	}

	assert.Equal(t, 2, counts[saft.KindCustomer])
	assert.Equal(t, 2, counts[saft.KindSupplier])
	assert.Equal(t, 3, counts[saft.KindProduct])
	assert.Equal(t, 5, counts[saft.KindGeneralLedgerAccount])
	assert.Equal(t, 5, counts[saft.KindTaxTableEntry])
	assert.Equal(t, 3, counts[saft.KindLedgerLine])
}

func TestLedgerLinesBalance(t *testing.T) {
	debit, credit := Totals()
	sumDebit, sumCredit := decimal.Zero, decimal.Zero
	for _, l := range LedgerLines(2023) {
		if l.IsDebit() {
			sumDebit = sumDebit.Add(*l.Line.DebitAmount)
		} else {
			sumCredit = sumCredit.Add(*l.Line.CreditAmount)
		}
	}
	assert.True(t, sumDebit.Equal(debit), "debit %s", sumDebit)
	assert.True(t, sumCredit.Equal(credit), "credit %s", sumCredit)
	assert.Equal(t, "2023-01-02 VND 0001", LedgerLines(2023)[0].Transaction.TransactionID)
}

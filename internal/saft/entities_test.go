package saft_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

func TestHeader_Valid(t *testing.T) {
	h := validHeader()
	assert.NoError(t, h.Validate())

	h.CompanyID = "Conservatoria Lisboa 12345/2010"
	assert.NoError(t, h.Validate())
}

func TestHeader_EndBeforeStart(t *testing.T) {
	h := validHeader()
	h.StartDate = saft.NewDate(2023, time.January, 1)
	h.EndDate = saft.NewDate(2022, time.December, 31)

	err := h.Validate()
	require.Error(t, err)
	assert.False(t, validation.IsFieldError(err))

	asserts := validation.AssertionErrors(err)
	require.Len(t, asserts, 1)
	assert.Equal(t, "PeriodOrder", asserts[0].Rule)
	assert.Equal(t, []string{"StartDate", "EndDate"}, asserts[0].Fields)
	assert.Contains(t, asserts[0].Message, "2022-12-31")
}

func TestHeader_FieldErrorsAreComplete(t *testing.T) {
	h := validHeader()
	h.AuditFileVersion = "1.03_01"
	h.CurrencyCode = "USD"
	h.CompanyAddress.Country = "ES"
	h.CompanyAddress.PostalCode = "28001"
	h.ProductID = "NoSlash"
	// Would also violate PeriodOrder; invariants must not run.
	h.EndDate = saft.NewDate(2022, time.December, 31)

	err := h.Validate()
	fields := validation.FieldErrors(err)
	got := make([]string, 0, len(fields))
	for _, f := range fields {
		got = append(got, f.Field)
	}
	assert.ElementsMatch(t, []string{
		"AuditFileVersion", "CurrencyCode", "CompanyAddress.Country", "CompanyAddress.PostalCode", "ProductID",
	}, got)
	assert.False(t, validation.IsAssertionError(err))
}

func TestGeneralLedgerAccount_GroupingRules(t *testing.T) {
	for _, cat := range []saft.GroupingCategory{
		saft.CategoryGR, saft.CategoryGA, saft.CategoryGM, saft.CategoryAR, saft.CategoryAA, saft.CategoryAM,
	} {
		t.Run(string(cat)+" valid", func(t *testing.T) {
			assert.NoError(t, validAccount(cat).Validate())
		})
	}

	tests := []struct {
		name    string
		mutate  func(a *saft.GeneralLedgerAccount)
		cat     saft.GroupingCategory
		rule    string
		message string
	}{
		{
			name:    "GR forbids GroupingCode",
			cat:     saft.CategoryGR,
			mutate:  func(a *saft.GeneralLedgerAccount) { a.GroupingCode = "X" },
			rule:    "GroupingCodePresence",
			message: "GroupingCode must be absent for GroupingCategory GR",
		},
		{
			name:    "AR forbids TaxonomyCode",
			cat:     saft.CategoryAR,
			mutate:  func(a *saft.GeneralLedgerAccount) { a.TaxonomyCode = saft.IntPtr(5) },
			rule:    "TaxonomyCodePresence",
			message: "TaxonomyCode must be absent for GroupingCategory AR",
		},
		{
			name:    "GA requires GroupingCode",
			cat:     saft.CategoryGA,
			mutate:  func(a *saft.GeneralLedgerAccount) { a.GroupingCode = "" },
			rule:    "GroupingCodePresence",
			message: "GroupingCode is required for GroupingCategory GA",
		},
		{
			name:    "GM requires TaxonomyCode",
			cat:     saft.CategoryGM,
			mutate:  func(a *saft.GeneralLedgerAccount) { a.TaxonomyCode = nil },
			rule:    "TaxonomyCodePresence",
			message: "TaxonomyCode is required for GroupingCategory GM",
		},
		{
			name:    "AM forbids TaxonomyCode",
			cat:     saft.CategoryAM,
			mutate:  func(a *saft.GeneralLedgerAccount) { a.TaxonomyCode = saft.IntPtr(10) },
			rule:    "TaxonomyCodePresence",
			message: "TaxonomyCode must be absent for GroupingCategory AM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAccount(tt.cat)
			tt.mutate(&a)

			asserts := validation.AssertionErrors(a.Validate())
			require.Len(t, asserts, 1)
			assert.Equal(t, tt.rule, asserts[0].Rule)
			assert.Contains(t, asserts[0].Message, tt.message)
		})
	}
}

func TestGeneralLedgerAccount_FieldErrors(t *testing.T) {
	a := validAccount(saft.CategoryGM)
	a.GroupingCategory = "XX"
	a.TaxonomyCode = saft.IntPtr(1000)

	err := a.Validate()
	assert.True(t, validation.IsFieldError(err))
	assert.False(t, validation.IsAssertionError(err))
	assert.Len(t, validation.FieldErrors(err), 2)
}

func TestCustomer_TaxID(t *testing.T) {
	for _, id := range []string{"123456789", saft.FinalConsumerNIF, saft.FinalConsumer} {
		c := validCustomer()
		c.CustomerTaxID = id
		assert.NoError(t, c.Validate(), id)
	}
	for _, id := range []string{"12345678", "consumidor final", "PT123456789"} {
		c := validCustomer()
		c.CustomerTaxID = id
		assert.Error(t, c.Validate(), id)
	}
}

func TestCustomer_UnknownAccountAndCountry(t *testing.T) {
	c := validCustomer()
	c.AccountID = saft.Unknown
	c.BillingAddress.Country = saft.Unknown
	c.BillingAddress.PostalCode = saft.Unknown
	assert.NoError(t, c.Validate())
}

func TestCustomer_EveryShipToAddressIsValidated(t *testing.T) {
	c := validCustomer()
	good := c.BillingAddress
	bad := c.BillingAddress
	bad.City = ""
	c.ShipToAddress = []saft.Address{good, bad}

	fields := validation.FieldErrors(c.Validate())
	require.Len(t, fields, 1)
	assert.Equal(t, "ShipToAddress[1].City", fields[0].Field)
}

func TestSupplier(t *testing.T) {
	s := validSupplier()
	assert.NoError(t, s.Validate())

	s.SupplierTaxID = saft.FinalConsumer
	s.BillingAddress.Country = saft.Unknown
	s.SelfBillingIndicator = 2

	fields := validation.FieldErrors(s.Validate())
	got := make([]string, 0, len(fields))
	for _, f := range fields {
		got = append(got, f.Field)
	}
	assert.ElementsMatch(t, []string{"SupplierTaxID", "BillingAddress.Country", "SelfBillingIndicator"}, got)
}

func TestProduct(t *testing.T) {
	p := validProduct()
	assert.NoError(t, p.Validate())

	p.CustomsDetails = &saft.CustomsDetails{CNCode: []string{"19059080"}, UNNumber: []string{"1203"}}
	assert.NoError(t, p.Validate())

	p.ProductType = "X"
	p.ProductDescription = "P"
	p.CustomsDetails.CNCode = append(p.CustomsDetails.CNCode, "1905")
	assert.Len(t, validation.FieldErrors(p.Validate()), 3)
}

func TestTaxTableEntry_Exclusivity(t *testing.T) {
	e := validTaxEntry()
	assert.NoError(t, e.Validate())

	amount := validTaxEntry()
	amount.TaxType = saft.TaxIS
	amount.TaxCode = "ISE"
	amount.TaxPercentage = nil
	amount.TaxAmount = saft.Money("1.50")
	assert.NoError(t, amount.Validate())

	both := validTaxEntry()
	both.TaxAmount = saft.Money("1.00")
	neither := validTaxEntry()
	neither.TaxPercentage = nil

	bothErr := validation.AssertionErrors(both.Validate())
	neitherErr := validation.AssertionErrors(neither.Validate())
	require.Len(t, bothErr, 1)
	require.Len(t, neitherErr, 1)
	assert.Equal(t, "PercentageXorAmount", bothErr[0].Rule)
	assert.NotEqual(t, bothErr[0].Message, neitherErr[0].Message)
}

func TestTaxTableEntry_Fields(t *testing.T) {
	e := validTaxEntry()
	e.TaxCountryRegion = "PT-AC"
	e.TaxExpirationDate = saft.NewDate(2030, time.December, 31)
	assert.NoError(t, e.Validate())
	assert.Equal(t, "IVA|PT-AC|NOR", e.Key())

	e.TaxCode = "TOOLONGCODE1"
	e.TaxPercentage = saft.Money("123")
	assert.Len(t, validation.FieldErrors(e.Validate()), 2)
}

func TestTaxTableEntry_PercentagePrecision(t *testing.T) {
	tests := []struct {
		name  string
		value string
		rule  string
	}{
		{name: "standard rate", value: "23"},
		{name: "two decimals", value: "6.25"},
		{name: "three decimals", value: "6.125", rule: validation.RuleDecimal},
		{name: "negative", value: "-1", rule: validation.RuleRange},
		{name: "above 100", value: "100.01", rule: validation.RuleRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validTaxEntry()
			e.TaxPercentage = saft.Money(tt.value)

			err := e.Validate()
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			fields := validation.FieldErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, "TaxPercentage", fields[0].Field)
			assert.Equal(t, tt.rule, fields[0].Rule)
		})
	}
}

func TestLedgerLine(t *testing.T) {
	l := validLedgerLine()
	require.NoError(t, l.Validate())
	assert.Equal(t, "2023-03-15 VND 0001|1", l.Key())
	assert.True(t, l.IsDebit())

	t.Run("debit and credit", func(t *testing.T) {
		l := validLedgerLine()
		l.Line.CreditAmount = saft.Money("1.00")
		asserts := validation.AssertionErrors(l.Validate())
		require.Len(t, asserts, 1)
		assert.Equal(t, "DebitXorCredit", asserts[0].Rule)
	})

	t.Run("customer and supplier", func(t *testing.T) {
		l := validLedgerLine()
		l.Transaction.SupplierID = "F001"
		asserts := validation.AssertionErrors(l.Validate())
		require.Len(t, asserts, 1)
		assert.Equal(t, "PartyExclusive", asserts[0].Rule)
	})

	t.Run("field paths", func(t *testing.T) {
		l := validLedgerLine()
		l.Transaction.Period = 17
		l.Line.DebitAmount = saft.Money("-1")
		l.Journal.JournalID = "V N D"

		fields := validation.FieldErrors(l.Validate())
		got := make([]string, 0, len(fields))
		for _, f := range fields {
			got = append(got, f.Field)
		}
		assert.ElementsMatch(t, []string{"Journal.JournalID", "Transaction.Period", "Line.DebitAmount"}, got)
	})
}

func TestTransaction(t *testing.T) {
	tx := validTransaction()
	assert.NoError(t, tx.Validate())

	empty := validTransaction()
	empty.Lines = saft.Lines{}
	asserts := validation.AssertionErrors(empty.Validate())
	require.Len(t, asserts, 1)
	assert.Equal(t, "HasLines", asserts[0].Rule)

	badLine := validTransaction()
	badLine.Lines.CreditLines[0].AccountID = "7"
	fields := validation.FieldErrors(badLine.Validate())
	require.Len(t, fields, 1)
	assert.Equal(t, "Lines.CreditLine[0].AccountID", fields[0].Field)
}

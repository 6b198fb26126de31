package saft_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

func validMasterFiles() saft.MasterFiles {
	return saft.MasterFiles{
		GeneralLedgerAccounts: &saft.GeneralLedgerAccounts{
			TaxonomyReference: saft.TaxonomySNC,
			Accounts:          []saft.GeneralLedgerAccount{validAccount(saft.CategoryGR), validAccount(saft.CategoryGM)},
		},
		Customers: []saft.Customer{validCustomer()},
		Suppliers: []saft.Supplier{validSupplier()},
		Products:  []saft.Product{validProduct()},
		TaxTable:  &saft.TaxTable{Entries: []saft.TaxTableEntry{validTaxEntry()}},
	}
}

func validLedger() *saft.GeneralLedgerEntries {
	return &saft.GeneralLedgerEntries{
		NumberOfEntries: 1,
		TotalDebit:      decimal.RequireFromString("12.30"),
		TotalCredit:     decimal.RequireFromString("12.30"),
		Journals: []saft.Journal{{
			JournalID:    "VND",
			Description:  "Vendas",
			Transactions: []saft.Transaction{validTransaction()},
		}},
	}
}

func TestNewAuditFile(t *testing.T) {
	h := validHeader()
	af, err := saft.NewAuditFile(&h, validMasterFiles(), validLedger())
	require.NoError(t, err)
	assert.True(t, af.Validated())

	var unvalidated *saft.AuditFile
	assert.False(t, unvalidated.Validated())
	assert.False(t, (&saft.AuditFile{}).Validated())
}

func TestAuditFile_ChangesRevokeValidation(t *testing.T) {
	h := validHeader()
	af, err := saft.NewAuditFile(&h, validMasterFiles(), validLedger())
	require.NoError(t, err)

	t.Run("mutated copy", func(t *testing.T) {
		cp := *af
		cp.Header.CompanyName = ""
		cp.Header.EndDate = saft.NewDate(cp.Header.FiscalYear-1, 12, 31)
		assert.False(t, cp.Validated())
		assert.True(t, af.Validated(), "the original is untouched")
	})

	t.Run("unchanged copy", func(t *testing.T) {
		cp := *af
		assert.True(t, cp.Validated())
	})

	t.Run("shared nested data", func(t *testing.T) {
		h := validHeader()
		af, err := saft.NewAuditFile(&h, validMasterFiles(), validLedger())
		require.NoError(t, err)
		af.MasterFiles.Customers[0].CustomerID = af.MasterFiles.Customers[0].CustomerID + "X"
		assert.False(t, af.Validated())
	})
}

func TestNewAuditFile_RejectsNonXMLText(t *testing.T) {
	h := validHeader()
	h.CompanyName = "\x01\x02"
	mf := validMasterFiles()
	mf.Customers[0].BillingAddress.City = "Lisboa\x00"

	_, err := saft.NewAuditFile(&h, mf, nil)
	require.Error(t, err)

	rules := map[string]string{}
	for _, fe := range validation.FieldErrors(err) {
		rules[fe.Field] = fe.Rule
	}
	assert.Equal(t, validation.RuleFormat, rules["Header.CompanyName"])
	assert.Equal(t, validation.RuleFormat, rules["MasterFiles.Customer[0].BillingAddress.City"])
}

func TestNewAuditFile_NilHeader(t *testing.T) {
	_, err := saft.NewAuditFile(nil, saft.MasterFiles{}, nil)
	assert.ErrorIs(t, err, saft.ErrNilHeader)
}

func TestNewAuditFile_PropagatesNestedErrors(t *testing.T) {
	h := validHeader()
	mf := validMasterFiles()
	mf.Customers[0].CompanyName = ""

	af, err := saft.NewAuditFile(&h, mf, nil)
	assert.Nil(t, af)

	fields := validation.FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "AuditFile", fields[0].Entity)
	assert.Equal(t, "MasterFiles.Customer[0].CompanyName", fields[0].Field)
}

func TestNewAuditFile_Uniqueness(t *testing.T) {
	h := validHeader()
	mf := validMasterFiles()
	mf.Customers = append(mf.Customers, validCustomer())
	mf.Products = append(mf.Products, validProduct(), validProduct())
	gl := validLedger()
	gl.Journals = append(gl.Journals, gl.Journals[0])

	_, err := saft.NewAuditFile(&h, mf, gl)
	asserts := validation.AssertionErrors(err)

	rules := make(map[string]string, len(asserts))
	for _, a := range asserts {
		rules[a.Rule] = a.Message
	}
	assert.Len(t, rules, 4)
	assert.Equal(t, "duplicate values: C001", rules["UniqueCustomerID"])
	assert.Equal(t, "duplicate values: PAO01", rules["UniqueProductCode"])
	assert.Contains(t, rules, "UniqueJournalID")
	assert.Contains(t, rules, "UniqueTransactionID")
}

func TestKind(t *testing.T) {
	for _, k := range saft.Kinds() {
		parsed, err := saft.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	k, err := saft.ParseKind(" glaccount ")
	require.NoError(t, err)
	assert.Equal(t, saft.KindGeneralLedgerAccount, k)

	_, err = saft.ParseKind("Invoice")
	assert.ErrorIs(t, err, saft.ErrUnknownKind)
	assert.False(t, saft.KindUnknown.Valid())
}

func TestDecodeEntity_RoundTrip(t *testing.T) {
	entities := []saft.Entity{
		validCustomer(),
		validSupplier(),
		validProduct(),
		validAccount(saft.CategoryGM),
		validTaxEntry(),
		validLedgerLine(),
	}

	for _, e := range entities {
		t.Run(e.Kind().String(), func(t *testing.T) {
			raw, err := json.Marshal(e)
			require.NoError(t, err)

			decoded, err := saft.DecodeEntity(e.Kind(), raw)
			require.NoError(t, err)
			assert.Equal(t, e.Kind(), decoded.Kind())
			assert.Equal(t, e.Key(), decoded.Key())
			assert.NoError(t, decoded.Validate())
		})
	}

	_, err := saft.DecodeEntity(saft.KindUnknown, []byte(`{}`))
	assert.ErrorIs(t, err, saft.ErrUnknownKind)
}

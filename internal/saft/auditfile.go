// =============================================================================
// SAF-T PT Generator - Audit File
// =============================================================================
//
// AuditFile is the aggregate root serialized to XML. It is only obtainable
// in validated form through NewAuditFile; the XML generator refuses any
// AuditFile that did not come from there.
//
// =============================================================================

package saft

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// ErrNilHeader is returned by NewAuditFile when no header is given.
var ErrNilHeader = errors.New("audit file header is required")

// MasterFiles holds the master data categories. Nil or empty categories are
// omitted from the document.
type MasterFiles struct {
	GeneralLedgerAccounts *GeneralLedgerAccounts `json:"GeneralLedgerAccounts,omitempty"`
	Customers             []Customer             `json:"Customer,omitempty"`
	Suppliers             []Supplier             `json:"Supplier,omitempty"`
	Products              []Product              `json:"Product,omitempty"`
	TaxTable              *TaxTable              `json:"TaxTable,omitempty"`
}

func (m MasterFiles) Validate() error {
	c := validation.NewCollector("MasterFiles")
	if m.GeneralLedgerAccounts != nil {
		c.Nested("GeneralLedgerAccounts", m.GeneralLedgerAccounts.Validate())
	}
	for i, cu := range m.Customers {
		c.Nested(fmt.Sprintf("Customer[%d]", i), cu.Validate())
	}
	for i, s := range m.Suppliers {
		c.Nested(fmt.Sprintf("Supplier[%d]", i), s.Validate())
	}
	for i, p := range m.Products {
		c.Nested(fmt.Sprintf("Product[%d]", i), p.Validate())
	}
	if m.TaxTable != nil {
		c.Nested("TaxTable", m.TaxTable.Validate())
	}
	return c.Err()
}

// AuditFile is the SAF-T document root. The exported fields are readable,
// but any change made after NewAuditFile, on the value or on a copy,
// revokes its validated status.
type AuditFile struct {
	Header               Header                `json:"Header"`
	MasterFiles          MasterFiles           `json:"MasterFiles"`
	GeneralLedgerEntries *GeneralLedgerEntries `json:"GeneralLedgerEntries,omitempty"`

	validated   bool
	fingerprint [sha256.Size]byte
}

// NewAuditFile validates the whole tree and returns a validated AuditFile.
//
// PARAMETERS:
//   - header: the file header (required)
//   - masterFiles: master data, any category may be empty
//   - ledger: general ledger entries, nil to omit the section
//
// RETURNS:
//   - *AuditFile marked as validated
//   - error aggregating every field and assertion violation
func NewAuditFile(header *Header, masterFiles MasterFiles, ledger *GeneralLedgerEntries) (*AuditFile, error) {
	if header == nil {
		return nil, ErrNilHeader
	}

	af := AuditFile{
		Header:               *header,
		MasterFiles:          masterFiles,
		GeneralLedgerEntries: ledger,
	}

	c := validation.NewCollector("AuditFile")
	c.Nested("Header", af.Header.Validate())
	c.Nested("MasterFiles", af.MasterFiles.Validate())
	if af.GeneralLedgerEntries != nil {
		c.Nested("GeneralLedgerEntries", af.GeneralLedgerEntries.Validate())
	}
	if err := validation.Validate(c, af, auditFileInvariants); err != nil {
		return nil, err
	}

	sum, err := af.contentHash()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint audit file: %w", err)
	}
	af.validated = true
	af.fingerprint = sum
	return &af, nil
}

// Validated reports whether af was produced by NewAuditFile and still holds
// exactly the content that was validated there.
func (af *AuditFile) Validated() bool {
	if af == nil || !af.validated {
		return false
	}
	sum, err := af.contentHash()
	return err == nil && sum == af.fingerprint
}

// contentHash digests the whole tree through its JSON form. Unexported
// fields are not part of it.
func (af *AuditFile) contentHash() ([sha256.Size]byte, error) {
	data, err := json.Marshal(af)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

var auditFileInvariants = []validation.Invariant[AuditFile]{
	uniqueInvariant("UniqueAccountID", "MasterFiles.GeneralLedgerAccounts.Account.AccountID", func(af AuditFile) []string {
		if af.MasterFiles.GeneralLedgerAccounts == nil {
			return nil
		}
		ids := make([]string, 0, len(af.MasterFiles.GeneralLedgerAccounts.Accounts))
		for _, a := range af.MasterFiles.GeneralLedgerAccounts.Accounts {
			ids = append(ids, a.AccountID)
		}
		return ids
	}),
	uniqueInvariant("UniqueCustomerID", "MasterFiles.Customer.CustomerID", func(af AuditFile) []string {
		ids := make([]string, 0, len(af.MasterFiles.Customers))
		for _, c := range af.MasterFiles.Customers {
			ids = append(ids, c.CustomerID)
		}
		return ids
	}),
	uniqueInvariant("UniqueSupplierID", "MasterFiles.Supplier.SupplierID", func(af AuditFile) []string {
		ids := make([]string, 0, len(af.MasterFiles.Suppliers))
		for _, s := range af.MasterFiles.Suppliers {
			ids = append(ids, s.SupplierID)
		}
		return ids
	}),
	uniqueInvariant("UniqueProductCode", "MasterFiles.Product.ProductCode", func(af AuditFile) []string {
		ids := make([]string, 0, len(af.MasterFiles.Products))
		for _, p := range af.MasterFiles.Products {
			ids = append(ids, p.ProductCode)
		}
		return ids
	}),
	uniqueInvariant("UniqueJournalID", "GeneralLedgerEntries.Journal.JournalID", func(af AuditFile) []string {
		if af.GeneralLedgerEntries == nil {
			return nil
		}
		var ids []string
		for _, j := range af.GeneralLedgerEntries.Journals {
			ids = append(ids, j.JournalID)
		}
		return ids
	}),
	uniqueInvariant("UniqueTransactionID", "GeneralLedgerEntries.Journal.Transaction.TransactionID", func(af AuditFile) []string {
		if af.GeneralLedgerEntries == nil {
			return nil
		}
		var ids []string
		for _, j := range af.GeneralLedgerEntries.Journals {
			for _, t := range j.Transactions {
				ids = append(ids, t.TransactionID)
			}
		}
		return ids
	}),
}

func uniqueInvariant(name, field string, keys func(AuditFile) []string) validation.Invariant[AuditFile] {
	return validation.Invariant[AuditFile]{
		Name:   name,
		Fields: []string{field},
		Check: func(af AuditFile) string {
			dups := duplicates(keys(af))
			if len(dups) == 0 {
				return ""
			}
			return fmt.Sprintf("duplicate values: %s", strings.Join(dups, ", "))
		},
	}
}

// duplicates returns each repeated value once, in first-repeat order.
func duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var out []string
	for _, v := range values {
		seen[v]++
		if seen[v] == 2 {
			out = append(out, v)
		}
	}
	return out
}

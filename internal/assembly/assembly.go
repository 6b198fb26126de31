// =============================================================================
// SAF-T PT Generator - Audit Assembly
// =============================================================================
//
// Assembly turns validated entities into one AuditFile.
//
// ASSEMBLY STEPS:
//   1. Bucket the entities per kind (Collect)
//   2. Regroup flat ledger lines into Journals -> Transactions -> Lines
//      (GroupLedger), keeping the order in which each journal, transaction
//      and line was first seen
//   3. Omit every empty master file category
//   4. Omit GeneralLedgerEntries when there are no journals
//   5. Validate the whole tree through saft.NewAuditFile
//
// Ledger totals are never computed here. They come from Options and default
// to zero.
//
// =============================================================================

package assembly

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
	"github.com/LosLebos/SAFT-T-Portugal/internal/store"
)

// ErrConflictingTransaction is returned by GroupLedger when two lines of the
// same transaction disagree on the transaction or journal data.
var ErrConflictingTransaction = errors.New("conflicting transaction data")

// =============================================================================
// ENTITY BUCKETS
// =============================================================================

// Entities holds validated entities bucketed per kind, in input order.
type Entities struct {
	Accounts    []saft.GeneralLedgerAccount
	Customers   []saft.Customer
	Suppliers   []saft.Supplier
	Products    []saft.Product
	TaxEntries  []saft.TaxTableEntry
	LedgerLines []saft.LedgerLine
}

// Collect buckets entities per kind.
func Collect(entities []saft.Entity) (Entities, error) {
	var out Entities
	for i, e := range entities {
		if err := out.Add(e); err != nil {
			return Entities{}, fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return out, nil
}

// Add appends one entity to its bucket.
func (b *Entities) Add(e saft.Entity) error {
	switch v := e.(type) {
	case saft.GeneralLedgerAccount:
		b.Accounts = append(b.Accounts, v)
	case saft.Customer:
		b.Customers = append(b.Customers, v)
	case saft.Supplier:
		b.Suppliers = append(b.Suppliers, v)
	case saft.Product:
		b.Products = append(b.Products, v)
	case saft.TaxTableEntry:
		b.TaxEntries = append(b.TaxEntries, v)
	case saft.LedgerLine:
		b.LedgerLines = append(b.LedgerLines, v)
	case nil:
		return errors.New("nil entity")
	default:
		return fmt.Errorf("%w: %T", saft.ErrUnknownKind, e)
	}
	return nil
}

// Count returns the number of entities of kind.
func (b Entities) Count(kind saft.Kind) int {
	switch kind {
	case saft.KindGeneralLedgerAccount:
		return len(b.Accounts)
	case saft.KindCustomer:
		return len(b.Customers)
	case saft.KindSupplier:
		return len(b.Suppliers)
	case saft.KindProduct:
		return len(b.Products)
	case saft.KindTaxTableEntry:
		return len(b.TaxEntries)
	case saft.KindLedgerLine:
		return len(b.LedgerLines)
	}
	return 0
}

// =============================================================================
// LEDGER GROUPING
// =============================================================================

// GroupLedger rebuilds the journal tree from flat ledger lines.
//
// Lines are grouped by JournalID, then by TransactionID. Journals,
// transactions and lines keep first-seen order; debit and credit lines are
// split into their own lists. Every line of a transaction must carry the
// same transaction header and journal, otherwise ErrConflictingTransaction
// is returned naming the fields that differ.
func GroupLedger(lines []saft.LedgerLine) ([]saft.Journal, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	type txnRef struct {
		journal int
		index   int
	}

	var journals []saft.Journal
	journalIndex := make(map[string]int)
	txnIndex := make(map[string]txnRef)

	for i, l := range lines {
		ji, ok := journalIndex[l.Journal.JournalID]
		if !ok {
			ji = len(journals)
			journalIndex[l.Journal.JournalID] = ji
			journals = append(journals, saft.Journal{
				JournalID:   l.Journal.JournalID,
				Description: l.Journal.Description,
			})
		} else if journals[ji].Description != l.Journal.Description {
			return nil, fmt.Errorf("%w: line %d: journal %s: Description %q vs %q",
				ErrConflictingTransaction, i, l.Journal.JournalID, journals[ji].Description, l.Journal.Description)
		}

		ref, ok := txnIndex[l.Transaction.TransactionID]
		if !ok {
			ref = txnRef{journal: ji, index: len(journals[ji].Transactions)}
			txnIndex[l.Transaction.TransactionID] = ref
			journals[ji].Transactions = append(journals[ji].Transactions, saft.Transaction{
				TransactionHeader: l.Transaction,
			})
		} else {
			if ref.journal != ji {
				return nil, fmt.Errorf("%w: line %d: transaction %s posted to journals %s and %s",
					ErrConflictingTransaction, i, l.Transaction.TransactionID,
					journals[ref.journal].JournalID, l.Journal.JournalID)
			}
			first := journals[ji].Transactions[ref.index].TransactionHeader
			if diff := headerDiff(first, l.Transaction); len(diff) > 0 {
				return nil, fmt.Errorf("%w: line %d: transaction %s: %s",
					ErrConflictingTransaction, i, l.Transaction.TransactionID, strings.Join(diff, ", "))
			}
		}

		txn := &journals[ji].Transactions[ref.index]
		switch {
		case l.Line.DebitAmount != nil:
			txn.Lines.DebitLines = append(txn.Lines.DebitLines, saft.DebitLine{
				Line:        l.Line.Line,
				DebitAmount: *l.Line.DebitAmount,
			})
		case l.Line.CreditAmount != nil:
			txn.Lines.CreditLines = append(txn.Lines.CreditLines, saft.CreditLine{
				Line:         l.Line.Line,
				CreditAmount: *l.Line.CreditAmount,
			})
		default:
			return nil, fmt.Errorf("line %d: record %s has neither a debit nor a credit amount", i, l.Line.RecordID)
		}
	}

	return journals, nil
}

// headerDiff lists the fields on which a and b disagree.
func headerDiff(a, b saft.TransactionHeader) []string {
	var diff []string
	add := func(field string, equal bool, av, bv any) {
		if !equal {
			diff = append(diff, fmt.Sprintf("%s %v vs %v", field, av, bv))
		}
	}
	add("Period", a.Period == b.Period, a.Period, b.Period)
	add("TransactionDate", a.TransactionDate.Equal(b.TransactionDate), a.TransactionDate, b.TransactionDate)
	add("SourceID", a.SourceID == b.SourceID, a.SourceID, b.SourceID)
	add("Description", a.Description == b.Description, a.Description, b.Description)
	add("DocArchivalNumber", a.DocArchivalNumber == b.DocArchivalNumber, a.DocArchivalNumber, b.DocArchivalNumber)
	add("TransactionType", a.TransactionType == b.TransactionType, a.TransactionType, b.TransactionType)
	add("GLPostingDate", a.GLPostingDate.Equal(b.GLPostingDate), a.GLPostingDate, b.GLPostingDate)
	add("CustomerID", a.CustomerID == b.CustomerID, a.CustomerID, b.CustomerID)
	add("SupplierID", a.SupplierID == b.SupplierID, a.SupplierID, b.SupplierID)
	return diff
}

// CountTransactions returns the number of transactions across journals.
func CountTransactions(journals []saft.Journal) int {
	n := 0
	for _, j := range journals {
		n += len(j.Transactions)
	}
	return n
}

// =============================================================================
// ASSEMBLY
// =============================================================================

// Options controls the values assembly cannot derive from entities.
type Options struct {
	// TaxonomyReference of the chart of accounts. Defaults to S (SNC).
	TaxonomyReference saft.TaxonomyReference

	// TotalDebit and TotalCredit are copied to GeneralLedgerEntries as given.
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (o Options) withDefaults() Options {
	if o.TaxonomyReference == "" {
		o.TaxonomyReference = saft.TaxonomySNC
	}
	return o
}

// Assemble builds and validates an AuditFile from header and entities.
//
// PARAMETERS:
//   - header: the file header (required)
//   - entities: validated entities bucketed per kind
//   - opts: taxonomy reference and ledger totals
//
// RETURNS:
//   - the validated AuditFile
//   - an error from ledger grouping or from saft.NewAuditFile
func Assemble(header *saft.Header, entities Entities, opts Options) (*saft.AuditFile, error) {
	opts = opts.withDefaults()

	var mf saft.MasterFiles
	if len(entities.Accounts) > 0 {
		mf.GeneralLedgerAccounts = &saft.GeneralLedgerAccounts{
			TaxonomyReference: opts.TaxonomyReference,
			Accounts:          entities.Accounts,
		}
	}
	mf.Customers = nonEmpty(entities.Customers)
	mf.Suppliers = nonEmpty(entities.Suppliers)
	mf.Products = nonEmpty(entities.Products)
	if len(entities.TaxEntries) > 0 {
		mf.TaxTable = &saft.TaxTable{Entries: entities.TaxEntries}
	}

	journals, err := GroupLedger(entities.LedgerLines)
	if err != nil {
		return nil, fmt.Errorf("failed to group ledger lines: %w", err)
	}

	var ledger *saft.GeneralLedgerEntries
	if len(journals) > 0 {
		ledger = &saft.GeneralLedgerEntries{
			NumberOfEntries: CountTransactions(journals),
			TotalDebit:      opts.TotalDebit,
			TotalCredit:     opts.TotalCredit,
			Journals:        journals,
		}
	}

	af, err := saft.NewAuditFile(header, mf, ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble audit file: %w", err)
	}
	return af, nil
}

func nonEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// =============================================================================
// STORE-BACKED ASSEMBLER
// =============================================================================

// Assembler loads an owner's entities from a store and assembles them.
type Assembler struct {
	store  store.Store
	logger *log.Logger
}

// NewAssembler creates an Assembler reading from s. A nil logger discards.
func NewAssembler(s store.Store, logger *log.Logger) *Assembler {
	return &Assembler{
		store:  s,
		logger: log.OrDiscard(logger).WithComponent("assembly"),
	}
}

// Load reads every kind stored for owner.
func (a *Assembler) Load(ctx context.Context, owner string) (Entities, error) {
	var out Entities
	for _, kind := range saft.Kinds() {
		entities, err := a.store.List(ctx, owner, kind)
		if err != nil {
			return Entities{}, fmt.Errorf("failed to list %s entities: %w", kind, err)
		}
		for _, e := range entities {
			if err := out.Add(e); err != nil {
				return Entities{}, fmt.Errorf("failed to collect %s %q: %w", kind, e.Key(), err)
			}
		}
	}
	return out, nil
}

// Build loads owner's entities and assembles them under header.
func (a *Assembler) Build(ctx context.Context, owner string, header *saft.Header, opts Options) (*saft.AuditFile, error) {
	entities, err := a.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Loaded entities",
		"owner", owner,
		"accounts", len(entities.Accounts),
		"customers", len(entities.Customers),
		"suppliers", len(entities.Suppliers),
		"products", len(entities.Products),
		"tax_entries", len(entities.TaxEntries),
		"ledger_lines", len(entities.LedgerLines),
	)

	af, err := Assemble(header, entities, opts)
	if err != nil {
		return nil, err
	}

	entries := 0
	if af.GeneralLedgerEntries != nil {
		entries = af.GeneralLedgerEntries.NumberOfEntries
	}
	a.logger.Info("Assembled audit file", "owner", owner, "fiscal_year", af.Header.FiscalYear, "transactions", entries)
	return af, nil
}

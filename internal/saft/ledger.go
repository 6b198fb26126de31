package saft

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionHeader carries the transaction fields that precede Lines.
type TransactionHeader struct {
	TransactionID     string          `json:"TransactionID"`
	Period            int             `json:"Period"`
	TransactionDate   Date            `json:"TransactionDate"`
	SourceID          string          `json:"SourceID"`
	Description       string          `json:"Description"`
	DocArchivalNumber string          `json:"DocArchivalNumber"`
	TransactionType   TransactionType `json:"TransactionType"`
	GLPostingDate     Date            `json:"GLPostingDate"`
	CustomerID        string          `json:"CustomerID,omitempty"`
	SupplierID        string          `json:"SupplierID,omitempty"`
}

func (h TransactionHeader) check(c *validation.Collector) {
	checkTransactionID(c, "TransactionID", h.TransactionID)
	checkPeriod(c, "Period", h.Period)
	checkDate(c, "TransactionDate", h.TransactionDate)
	c.Text("SourceID", h.SourceID, 1, 30)
	c.Text("Description", h.Description, 1, 200)
	checkRequiredPattern(c, "DocArchivalNumber", h.DocArchivalNumber, reDocArchivalNumber, "1 to 20 characters without spaces")
	c.Check(h.TransactionType.IsValid(), "TransactionType", validation.RuleEnum, string(h.TransactionType),
		"must be one of N, R, A, J")
	checkDate(c, "GLPostingDate", h.GLPostingDate)
	c.OptionalText("CustomerID", h.CustomerID, 30)
	c.OptionalText("SupplierID", h.SupplierID, 30)
}

func partyExclusive(h TransactionHeader) string {
	if h.CustomerID != "" && h.SupplierID != "" {
		return fmt.Sprintf("CustomerID %q and SupplierID %q are mutually exclusive", h.CustomerID, h.SupplierID)
	}
	return ""
}

// Line holds the fields shared by debit and credit lines.
type Line struct {
	RecordID         string    `json:"RecordID"`
	AccountID        string    `json:"AccountID"`
	SourceDocumentID string    `json:"SourceDocumentID,omitempty"`
	SystemEntryDate  time.Time `json:"SystemEntryDate"`
	Description      string    `json:"Description"`
}

func (l Line) check(c *validation.Collector) {
	c.Text("RecordID", l.RecordID, 1, 30)
	checkGLAccountID(c, "AccountID", l.AccountID)
	c.OptionalText("SourceDocumentID", l.SourceDocumentID, 60)
	checkDateTime(c, "SystemEntryDate", l.SystemEntryDate)
	c.Text("Description", l.Description, 1, 200)
}

type DebitLine struct {
	Line
	DebitAmount decimal.Decimal `json:"DebitAmount"`
}

type CreditLine struct {
	Line
	CreditAmount decimal.Decimal `json:"CreditAmount"`
}

// Lines groups the debit and credit lines of one transaction.
type Lines struct {
	DebitLines  []DebitLine  `json:"DebitLine,omitempty"`
	CreditLines []CreditLine `json:"CreditLine,omitempty"`
}

// Transaction is one GL posting. Debit and credit totals are not compared.
type Transaction struct {
	TransactionHeader
	Lines Lines `json:"Lines"`
}

var transactionInvariants = []validation.Invariant[Transaction]{
	{
		Name:   "PartyExclusive",
		Fields: []string{"CustomerID", "SupplierID"},
		Check:  func(t Transaction) string { return partyExclusive(t.TransactionHeader) },
	},
	{
		Name:   "HasLines",
		Fields: []string{"Lines"},
		Check: func(t Transaction) string {
			if len(t.Lines.DebitLines)+len(t.Lines.CreditLines) == 0 {
				return "a transaction needs at least one debit or credit line"
			}
			return ""
		},
	},
}

func (t Transaction) Validate() error {
	c := validation.NewCollector("Transaction")

	t.TransactionHeader.check(c)
	for i, l := range t.Lines.DebitLines {
		lc := validation.NewCollector("DebitLine")
		l.Line.check(lc)
		lc.Money("DebitAmount", l.DebitAmount)
		c.Nested(fmt.Sprintf("Lines.DebitLine[%d]", i), lc.Err())
	}
	for i, l := range t.Lines.CreditLines {
		lc := validation.NewCollector("CreditLine")
		l.Line.check(lc)
		lc.Money("CreditAmount", l.CreditAmount)
		c.Nested(fmt.Sprintf("Lines.CreditLine[%d]", i), lc.Err())
	}

	return validation.Validate(c, t, transactionInvariants)
}

// =============================================================================
// JOURNALS
// =============================================================================

type Journal struct {
	JournalID    string        `json:"JournalID"`
	Description  string        `json:"Description"`
	Transactions []Transaction `json:"Transaction,omitempty"`
}

func (j Journal) Validate() error {
	c := validation.NewCollector("Journal")
	checkRequiredPattern(c, "JournalID", j.JournalID, reJournalID, "1 to 30 characters without spaces")
	c.Text("Description", j.Description, 1, 200)
	for i, t := range j.Transactions {
		c.Nested(fmt.Sprintf("Transaction[%d]", i), t.Validate())
	}
	return c.Err()
}

// GeneralLedgerEntries is the ledger section. Totals are supplied by the
// caller; they are never recomputed from the lines.
type GeneralLedgerEntries struct {
	NumberOfEntries int             `json:"NumberOfEntries"`
	TotalDebit      decimal.Decimal `json:"TotalDebit"`
	TotalCredit     decimal.Decimal `json:"TotalCredit"`
	Journals        []Journal       `json:"Journal,omitempty"`
}

func (g GeneralLedgerEntries) Validate() error {
	c := validation.NewCollector("GeneralLedgerEntries")
	c.Check(g.NumberOfEntries >= 0, "NumberOfEntries", validation.RuleRange, g.NumberOfEntries, "must not be negative")
	c.Money("TotalDebit", g.TotalDebit)
	c.Money("TotalCredit", g.TotalCredit)
	for i, j := range g.Journals {
		c.Nested(fmt.Sprintf("Journal[%d]", i), j.Validate())
	}
	return c.Err()
}

// =============================================================================
// LEDGER LINE (flat mapping target)
// =============================================================================

// JournalRef identifies the journal a ledger line is posted to.
type JournalRef struct {
	JournalID   string `json:"JournalID"`
	Description string `json:"Description"`
}

// LineEntry is one debit or credit line of a flat ledger row.
type LineEntry struct {
	Line
	DebitAmount  *decimal.Decimal `json:"DebitAmount,omitempty"`
	CreditAmount *decimal.Decimal `json:"CreditAmount,omitempty"`
}

// LedgerLine is one row of a general ledger export: a line together with
// the journal and transaction it belongs to. Assembly regroups ledger lines
// into Journals and Transactions.
type LedgerLine struct {
	Journal     JournalRef        `json:"Journal"`
	Transaction TransactionHeader `json:"Transaction"`
	Line        LineEntry         `json:"Line"`
}

func (LedgerLine) Kind() Kind { return KindLedgerLine }

// Key is "<TransactionID>|<RecordID>".
func (l LedgerLine) Key() string {
	return l.Transaction.TransactionID + "|" + l.Line.RecordID
}

// IsDebit reports whether the line carries a debit amount.
func (l LedgerLine) IsDebit() bool {
	return l.Line.DebitAmount != nil
}

var ledgerLineInvariants = []validation.Invariant[LedgerLine]{
	{
		Name:   "DebitXorCredit",
		Fields: []string{"Line.DebitAmount", "Line.CreditAmount"},
		Check: func(l LedgerLine) string {
			switch {
			case l.Line.DebitAmount != nil && l.Line.CreditAmount != nil:
				return "DebitAmount and CreditAmount are mutually exclusive; both are present"
			case l.Line.DebitAmount == nil && l.Line.CreditAmount == nil:
				return "exactly one of DebitAmount or CreditAmount is required; both are absent"
			}
			return ""
		},
	},
	{
		Name:   "PartyExclusive",
		Fields: []string{"Transaction.CustomerID", "Transaction.SupplierID"},
		Check:  func(l LedgerLine) string { return partyExclusive(l.Transaction) },
	},
}

func (l LedgerLine) Validate() error {
	c := validation.NewCollector("LedgerLine")

	jc := validation.NewCollector("Journal")
	checkRequiredPattern(jc, "JournalID", l.Journal.JournalID, reJournalID, "1 to 30 characters without spaces")
	jc.Text("Description", l.Journal.Description, 1, 200)
	c.Nested("Journal", jc.Err())

	tc := validation.NewCollector("Transaction")
	l.Transaction.check(tc)
	c.Nested("Transaction", tc.Err())

	lc := validation.NewCollector("Line")
	l.Line.Line.check(lc)
	lc.OptionalMoney("DebitAmount", l.Line.DebitAmount)
	lc.OptionalMoney("CreditAmount", l.Line.CreditAmount)
	c.Nested("Line", lc.Err())

	return validation.Validate(c, l, ledgerLineInvariants)
}

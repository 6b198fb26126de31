package saft

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// GeneralLedgerAccount is one account of the chart of accounts.
type GeneralLedgerAccount struct {
	AccountID            string           `json:"AccountID"`
	AccountDescription   string           `json:"AccountDescription"`
	OpeningDebitBalance  decimal.Decimal  `json:"OpeningDebitBalance"`
	OpeningCreditBalance decimal.Decimal  `json:"OpeningCreditBalance"`
	ClosingDebitBalance  decimal.Decimal  `json:"ClosingDebitBalance"`
	ClosingCreditBalance decimal.Decimal  `json:"ClosingCreditBalance"`
	GroupingCategory     GroupingCategory `json:"GroupingCategory"`
	GroupingCode         string           `json:"GroupingCode,omitempty"`
	TaxonomyCode         *int             `json:"TaxonomyCode,omitempty"`
}

func (GeneralLedgerAccount) Kind() Kind { return KindGeneralLedgerAccount }

func (a GeneralLedgerAccount) Key() string { return a.AccountID }

// The two grouping assertions are driven by the groupingRules table.
var accountInvariants = []validation.Invariant[GeneralLedgerAccount]{
	{
		Name:   "TaxonomyCodePresence",
		Fields: []string{"GroupingCategory", "TaxonomyCode"},
		Check: func(a GeneralLedgerAccount) string {
			rule := groupingRules[a.GroupingCategory]
			switch {
			case rule.requiresTaxonomy && a.TaxonomyCode == nil:
				return fmt.Sprintf("TaxonomyCode is required for GroupingCategory %s", a.GroupingCategory)
			case rule.forbidsTaxonomy && a.TaxonomyCode != nil:
				return fmt.Sprintf("TaxonomyCode must be absent for GroupingCategory %s (only GM accounts carry it)", a.GroupingCategory)
			}
			return ""
		},
	},
	{
		Name:   "GroupingCodePresence",
		Fields: []string{"GroupingCategory", "GroupingCode"},
		Check: func(a GeneralLedgerAccount) string {
			rule := groupingRules[a.GroupingCategory]
			switch {
			case rule.requiresCode && a.GroupingCode == "":
				return fmt.Sprintf("GroupingCode is required for GroupingCategory %s", a.GroupingCategory)
			case rule.forbidsCode && a.GroupingCode != "":
				return fmt.Sprintf("GroupingCode must be absent for GroupingCategory %s", a.GroupingCategory)
			}
			return ""
		},
	},
}

// Validate checks the fields, then the GroupingCategory assertions.
func (a GeneralLedgerAccount) Validate() error {
	c := validation.NewCollector("GeneralLedgerAccount")

	checkGLAccountID(c, "AccountID", a.AccountID)
	c.Text("AccountDescription", a.AccountDescription, 1, 100)
	c.Money("OpeningDebitBalance", a.OpeningDebitBalance)
	c.Money("OpeningCreditBalance", a.OpeningCreditBalance)
	c.Money("ClosingDebitBalance", a.ClosingDebitBalance)
	c.Money("ClosingCreditBalance", a.ClosingCreditBalance)
	c.Check(a.GroupingCategory.IsValid(), "GroupingCategory", validation.RuleEnum, string(a.GroupingCategory),
		"must be one of GR, GA, GM, AR, AA, AM")
	if a.GroupingCode != "" {
		checkGLAccountID(c, "GroupingCode", a.GroupingCode)
	}
	if a.TaxonomyCode != nil {
		c.IntRange("TaxonomyCode", *a.TaxonomyCode, 1, 999)
	}

	return validation.Validate(c, a, accountInvariants)
}

// GeneralLedgerAccounts is the MasterFiles chart of accounts.
type GeneralLedgerAccounts struct {
	TaxonomyReference TaxonomyReference      `json:"TaxonomyReference"`
	Accounts          []GeneralLedgerAccount `json:"Account"`
}

func (g GeneralLedgerAccounts) Validate() error {
	c := validation.NewCollector("GeneralLedgerAccounts")

	c.Check(g.TaxonomyReference.IsValid(), "TaxonomyReference", validation.RuleEnum, string(g.TaxonomyReference),
		"must be one of S, M, N, O")
	c.Check(len(g.Accounts) > 0, "Account", validation.RuleRequired, nil, "at least one account is required")
	for i, a := range g.Accounts {
		c.Nested(fmt.Sprintf("Account[%d]", i), a.Validate())
	}

	return c.Err()
}

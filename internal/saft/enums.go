package saft

// Enumerations are typed strings with an allowlist; the string value is the
// code written to XML.

// TaxAccountingBasis classifies the data exported in the file.
type TaxAccountingBasis string

const (
	BasisAccounting      TaxAccountingBasis = "C"
	BasisSelfBilling     TaxAccountingBasis = "E"
	BasisInvoicing       TaxAccountingBasis = "F"
	BasisIntegrated      TaxAccountingBasis = "I"
	BasisPublicInvoicing TaxAccountingBasis = "P"
	BasisReceipts        TaxAccountingBasis = "R"
	BasisSelfBillingFull TaxAccountingBasis = "S"
	BasisTransportDocs   TaxAccountingBasis = "T"
)

var validTaxAccountingBases = map[TaxAccountingBasis]bool{
	BasisAccounting: true, BasisSelfBilling: true, BasisInvoicing: true, BasisIntegrated: true,
	BasisPublicInvoicing: true, BasisReceipts: true, BasisSelfBillingFull: true, BasisTransportDocs: true,
}

func (b TaxAccountingBasis) IsValid() bool { return validTaxAccountingBases[b] }

// GroupingCategory classifies a general ledger account.
type GroupingCategory string

const (
	CategoryGR GroupingCategory = "GR" // first-degree GL account
	CategoryGA GroupingCategory = "GA" // aggregating GL account
	CategoryGM GroupingCategory = "GM" // movement GL account
	CategoryAR GroupingCategory = "AR" // first-degree analytical account
	CategoryAA GroupingCategory = "AA" // aggregating analytical account
	CategoryAM GroupingCategory = "AM" // movement analytical account
)

// groupingRule states which optional account fields a category demands.
type groupingRule struct {
	requiresCode     bool
	forbidsCode      bool
	requiresTaxonomy bool
	forbidsTaxonomy  bool
}

var groupingRules = map[GroupingCategory]groupingRule{
	CategoryGR: {forbidsCode: true, forbidsTaxonomy: true},
	CategoryAR: {forbidsCode: true, forbidsTaxonomy: true},
	CategoryGA: {requiresCode: true, forbidsTaxonomy: true},
	CategoryAA: {requiresCode: true, forbidsTaxonomy: true},
	CategoryGM: {requiresCode: true, requiresTaxonomy: true},
	CategoryAM: {requiresCode: true, forbidsTaxonomy: true},
}

func (g GroupingCategory) IsValid() bool {
	_, ok := groupingRules[g]
	return ok
}

// TaxonomyReference selects the chart-of-accounts taxonomy.
type TaxonomyReference string

const (
	TaxonomySNC       TaxonomyReference = "S"
	TaxonomyMicro     TaxonomyReference = "M"
	TaxonomyNonProfit TaxonomyReference = "N"
	TaxonomyOther     TaxonomyReference = "O"
)

func (t TaxonomyReference) IsValid() bool {
	switch t {
	case TaxonomySNC, TaxonomyMicro, TaxonomyNonProfit, TaxonomyOther:
		return true
	}
	return false
}

// ProductType classifies a product or service.
type ProductType string

const (
	ProductGoods        ProductType = "P"
	ProductServices     ProductType = "S"
	ProductOther        ProductType = "O"
	ProductExciseDuties ProductType = "E"
	ProductTaxesAndFees ProductType = "I"
)

func (p ProductType) IsValid() bool {
	switch p {
	case ProductGoods, ProductServices, ProductOther, ProductExciseDuties, ProductTaxesAndFees:
		return true
	}
	return false
}

// TaxType is the tax a tax table entry refers to.
type TaxType string

const (
	TaxIVA TaxType = "IVA"
	TaxIS  TaxType = "IS"
	TaxNS  TaxType = "NS"
)

func (t TaxType) IsValid() bool {
	return t == TaxIVA || t == TaxIS || t == TaxNS
}

// TransactionType classifies a general ledger transaction.
type TransactionType string

const (
	TransactionNormal         TransactionType = "N"
	TransactionRegularization TransactionType = "R"
	TransactionClosing        TransactionType = "A"
	TransactionAdjustment     TransactionType = "J"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionNormal, TransactionRegularization, TransactionClosing, TransactionAdjustment:
		return true
	}
	return false
}

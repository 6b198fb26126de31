package saft

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// TaxTableEntry is one rate (or fixed amount) of the tax table.
type TaxTableEntry struct {
	TaxType           TaxType          `json:"TaxType"`
	TaxCountryRegion  string           `json:"TaxCountryRegion"`
	TaxCode           string           `json:"TaxCode"`
	Description       string           `json:"Description"`
	TaxExpirationDate Date             `json:"TaxExpirationDate,omitzero"`
	TaxPercentage     *decimal.Decimal `json:"TaxPercentage,omitempty"`
	TaxAmount         *decimal.Decimal `json:"TaxAmount,omitempty"`
}

func (TaxTableEntry) Kind() Kind { return KindTaxTableEntry }

// Key is "<TaxType>|<TaxCountryRegion>|<TaxCode>".
func (e TaxTableEntry) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.TaxType, e.TaxCountryRegion, e.TaxCode)
}

var taxEntryInvariants = []validation.Invariant[TaxTableEntry]{
	{
		Name:   "PercentageXorAmount",
		Fields: []string{"TaxPercentage", "TaxAmount"},
		Check: func(e TaxTableEntry) string {
			switch {
			case e.TaxPercentage != nil && e.TaxAmount != nil:
				return "TaxPercentage and TaxAmount are mutually exclusive; both are present"
			case e.TaxPercentage == nil && e.TaxAmount == nil:
				return "exactly one of TaxPercentage or TaxAmount is required; both are absent"
			}
			return ""
		},
	},
}

// Validate checks the fields, then percentage/amount exclusivity.
func (e TaxTableEntry) Validate() error {
	c := validation.NewCollector("TaxTableEntry")

	c.Check(e.TaxType.IsValid(), "TaxType", validation.RuleEnum, string(e.TaxType), "must be one of IVA, IS, NS")
	c.Check(ValidTaxCountryRegion(e.TaxCountryRegion), "TaxCountryRegion", validation.RuleEnum, e.TaxCountryRegion,
		"must be an ISO 3166-1 alpha-2 code, PT-AC or PT-MA")
	checkRequiredPattern(c, "TaxCode", e.TaxCode, reTaxCode, "RED, INT, NOR, ISE, OUT, NS, NA or an alphanumeric code")
	c.Text("TaxCode", e.TaxCode, 1, 10)
	c.Text("Description", e.Description, 1, 255)
	checkOptionalDate(c, "TaxExpirationDate", e.TaxExpirationDate)
	if e.TaxPercentage != nil {
		c.Percentage("TaxPercentage", *e.TaxPercentage)
	}
	c.OptionalMoney("TaxAmount", e.TaxAmount)

	return validation.Validate(c, e, taxEntryInvariants)
}

// TaxTable is the MasterFiles tax table.
type TaxTable struct {
	Entries []TaxTableEntry `json:"TaxTableEntry"`
}

func (t TaxTable) Validate() error {
	c := validation.NewCollector("TaxTable")
	c.Check(len(t.Entries) > 0, "TaxTableEntry", validation.RuleRequired, nil, "at least one entry is required")
	for i, e := range t.Entries {
		c.Nested(fmt.Sprintf("TaxTableEntry[%d]", i), e.Validate())
	}
	return c.Err()
}

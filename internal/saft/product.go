package saft

import (
	"fmt"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// Product is a MasterFiles product or service.
type Product struct {
	ProductType        ProductType     `json:"ProductType"`
	ProductCode        string          `json:"ProductCode"`
	ProductGroup       string          `json:"ProductGroup,omitempty"`
	ProductDescription string          `json:"ProductDescription"`
	ProductNumberCode  string          `json:"ProductNumberCode"`
	CustomsDetails     *CustomsDetails `json:"CustomsDetails,omitempty"`
}

// CustomsDetails lists the combined nomenclature and UN codes of a product.
type CustomsDetails struct {
	CNCode   []string `json:"CNCode,omitempty"`
	UNNumber []string `json:"UNNumber,omitempty"`
}

// IsEmpty reports whether there is nothing to serialize.
func (d *CustomsDetails) IsEmpty() bool {
	return d == nil || (len(d.CNCode) == 0 && len(d.UNNumber) == 0)
}

func (Product) Kind() Kind { return KindProduct }

func (p Product) Key() string { return p.ProductCode }

func (p Product) Validate() error {
	c := validation.NewCollector("Product")

	c.Check(p.ProductType.IsValid(), "ProductType", validation.RuleEnum, string(p.ProductType),
		"must be one of P, S, O, E, I")
	c.Text("ProductCode", p.ProductCode, 1, 60)
	c.OptionalText("ProductGroup", p.ProductGroup, 50)
	c.Text("ProductDescription", p.ProductDescription, 2, 200)
	c.Text("ProductNumberCode", p.ProductNumberCode, 1, 60)
	if p.CustomsDetails != nil {
		for i, code := range p.CustomsDetails.CNCode {
			checkRequiredPattern(c, fmt.Sprintf("CustomsDetails.CNCode[%d]", i), code, reCNCode, "8 digits")
		}
		for i, code := range p.CustomsDetails.UNNumber {
			checkRequiredPattern(c, fmt.Sprintf("CustomsDetails.UNNumber[%d]", i), code, reUNNumber, "4 digits")
		}
	}

	return c.Err()
}

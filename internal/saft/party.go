package saft

import (
	"fmt"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

// Customer is a MasterFiles customer record.
type Customer struct {
	CustomerID           string    `json:"CustomerID"`
	AccountID            string    `json:"AccountID"`
	CustomerTaxID        string    `json:"CustomerTaxID"`
	CompanyName          string    `json:"CompanyName"`
	Contact              string    `json:"Contact,omitempty"`
	BillingAddress       Address   `json:"BillingAddress"`
	ShipToAddress        []Address `json:"ShipToAddress,omitempty"`
	Telephone            string    `json:"Telephone,omitempty"`
	Fax                  string    `json:"Fax,omitempty"`
	Email                string    `json:"Email,omitempty"`
	Website              string    `json:"Website,omitempty"`
	SelfBillingIndicator int       `json:"SelfBillingIndicator"`
}

func (Customer) Kind() Kind { return KindCustomer }

func (c Customer) Key() string { return c.CustomerID }

// Validate checks every field including every ShipTo address.
func (c Customer) Validate() error {
	v := validation.NewCollector("Customer")

	v.Text("CustomerID", c.CustomerID, 1, 30)
	checkPartyAccountID(v, "AccountID", c.AccountID)
	checkRequiredPattern(v, "CustomerTaxID", c.CustomerTaxID, reCustomerTaxID,
		fmt.Sprintf("a 9-digit NIF, %q or %q", FinalConsumerNIF, FinalConsumer))
	v.Text("CompanyName", c.CompanyName, 1, 100)
	v.OptionalText("Contact", c.Contact, 50)
	v.Nested("BillingAddress", c.BillingAddress.check(customerAddress))
	for i, addr := range c.ShipToAddress {
		v.Nested(fmt.Sprintf("ShipToAddress[%d]", i), addr.check(customerAddress))
	}
	checkContacts(v, c.Telephone, c.Fax, c.Email, c.Website)
	checkSelfBilling(v, c.SelfBillingIndicator)

	return v.Err()
}

// Supplier is a MasterFiles supplier record.
type Supplier struct {
	SupplierID           string    `json:"SupplierID"`
	AccountID            string    `json:"AccountID"`
	SupplierTaxID        string    `json:"SupplierTaxID"`
	CompanyName          string    `json:"CompanyName"`
	Contact              string    `json:"Contact,omitempty"`
	BillingAddress       Address   `json:"BillingAddress"`
	ShipFromAddress      []Address `json:"ShipFromAddress,omitempty"`
	Telephone            string    `json:"Telephone,omitempty"`
	Fax                  string    `json:"Fax,omitempty"`
	Email                string    `json:"Email,omitempty"`
	Website              string    `json:"Website,omitempty"`
	SelfBillingIndicator int       `json:"SelfBillingIndicator"`
}

func (Supplier) Kind() Kind { return KindSupplier }

func (s Supplier) Key() string { return s.SupplierID }

func (s Supplier) Validate() error {
	v := validation.NewCollector("Supplier")

	v.Text("SupplierID", s.SupplierID, 1, 30)
	checkPartyAccountID(v, "AccountID", s.AccountID)
	checkRequiredPattern(v, "SupplierTaxID", s.SupplierTaxID, reNIF, "a 9-digit NIF")
	v.Text("CompanyName", s.CompanyName, 1, 100)
	v.OptionalText("Contact", s.Contact, 50)
	v.Nested("BillingAddress", s.BillingAddress.check(supplierAddress))
	for i, addr := range s.ShipFromAddress {
		v.Nested(fmt.Sprintf("ShipFromAddress[%d]", i), addr.check(supplierAddress))
	}
	checkContacts(v, s.Telephone, s.Fax, s.Email, s.Website)
	checkSelfBilling(v, s.SelfBillingIndicator)

	return v.Err()
}

func checkContacts(v *validation.Collector, telephone, fax, email, website string) {
	v.OptionalText("Telephone", telephone, 20)
	v.OptionalText("Fax", fax, 20)
	v.OptionalText("Email", email, 254)
	v.OptionalText("Website", website, 60)
}

func checkSelfBilling(v *validation.Collector, indicator int) {
	v.Check(indicator == 0 || indicator == 1, "SelfBillingIndicator", validation.RuleEnum, indicator, "must be 0 or 1")
}

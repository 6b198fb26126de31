package saft

import "github.com/LosLebos/SAFT-T-Portugal/internal/validation"

// Header identifies the company, the period and the producing software.
type Header struct {
	AuditFileVersion          string             `json:"AuditFileVersion"`
	CompanyID                 string             `json:"CompanyID"`
	TaxRegistrationNumber     int                `json:"TaxRegistrationNumber"`
	TaxAccountingBasis        TaxAccountingBasis `json:"TaxAccountingBasis"`
	CompanyName               string             `json:"CompanyName"`
	BusinessName              string             `json:"BusinessName,omitempty"`
	CompanyAddress            Address            `json:"CompanyAddress"`
	FiscalYear                int                `json:"FiscalYear"`
	StartDate                 Date               `json:"StartDate"`
	EndDate                   Date               `json:"EndDate"`
	CurrencyCode              string             `json:"CurrencyCode"`
	DateCreated               Date               `json:"DateCreated"`
	TaxEntity                 string             `json:"TaxEntity"`
	ProductCompanyTaxID       string             `json:"ProductCompanyTaxID"`
	SoftwareCertificateNumber int                `json:"SoftwareCertificateNumber"`
	ProductID                 string             `json:"ProductID"`
	ProductVersion            string             `json:"ProductVersion"`
	HeaderComment             string             `json:"HeaderComment,omitempty"`
	Telephone                 string             `json:"Telephone,omitempty"`
	Fax                       string             `json:"Fax,omitempty"`
	Email                     string             `json:"Email,omitempty"`
	Website                   string             `json:"Website,omitempty"`
}

var headerInvariants = []validation.Invariant[Header]{
	{
		Name:   "PeriodOrder",
		Fields: []string{"StartDate", "EndDate"},
		Check: func(h Header) string {
			if h.EndDate.Before(h.StartDate) {
				return "EndDate " + h.EndDate.String() + " is before StartDate " + h.StartDate.String()
			}
			return ""
		},
	},
}

// Validate checks every field, then the period ordering.
func (h Header) Validate() error {
	c := validation.NewCollector("Header")

	c.Check(h.AuditFileVersion == AuditFileVersion, "AuditFileVersion", validation.RuleEnum, h.AuditFileVersion,
		"must be %s", AuditFileVersion)
	checkRequiredPattern(c, "CompanyID", h.CompanyID, reCompanyID,
		"a 9-digit NIF or \"<registry office> <registration number>\"")
	c.OptionalText("CompanyID", h.CompanyID, 50)
	checkVAT(c, "TaxRegistrationNumber", h.TaxRegistrationNumber)
	c.Check(h.TaxAccountingBasis.IsValid(), "TaxAccountingBasis", validation.RuleEnum, string(h.TaxAccountingBasis),
		"must be one of C, E, F, I, P, R, S, T")
	c.Text("CompanyName", h.CompanyName, 1, 100)
	c.OptionalText("BusinessName", h.BusinessName, 60)
	c.Nested("CompanyAddress", h.CompanyAddress.check(companyAddress))
	c.IntRange("FiscalYear", h.FiscalYear, 2000, 9999)
	checkDate(c, "StartDate", h.StartDate)
	checkDate(c, "EndDate", h.EndDate)
	c.Check(h.CurrencyCode == CurrencyCode, "CurrencyCode", validation.RuleEnum, h.CurrencyCode, "must be %s", CurrencyCode)
	checkDate(c, "DateCreated", h.DateCreated)
	c.Text("TaxEntity", h.TaxEntity, 1, 20)
	checkRequiredPattern(c, "ProductCompanyTaxID", h.ProductCompanyTaxID, reProductCompanyTaxID,
		"a 9-digit NIF or \"Global\"")
	c.Check(h.SoftwareCertificateNumber >= 0, "SoftwareCertificateNumber", validation.RuleRange,
		h.SoftwareCertificateNumber, "must not be negative")
	checkRequiredPattern(c, "ProductID", h.ProductID, reProductID, "\"<product name>/<company name>\"")
	c.OptionalText("ProductID", h.ProductID, 255)
	c.Text("ProductVersion", h.ProductVersion, 1, 30)
	c.OptionalText("HeaderComment", h.HeaderComment, 255)
	c.OptionalText("Telephone", h.Telephone, 20)
	c.OptionalText("Fax", h.Fax, 20)
	c.OptionalText("Email", h.Email, 254)
	c.OptionalText("Website", h.Website, 60)

	return validation.Validate(c, h, headerInvariants)
}

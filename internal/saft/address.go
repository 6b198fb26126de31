package saft

import "github.com/LosLebos/SAFT-T-Portugal/internal/validation"

// Address is the SAF-T address structure. The same shape serves the company
// (Portuguese address), customers and suppliers; they differ only in which
// values are accepted for PostalCode and Country.
type Address struct {
	BuildingNumber string `json:"BuildingNumber,omitempty"`
	StreetName     string `json:"StreetName,omitempty"`
	AddressDetail  string `json:"AddressDetail"`
	City           string `json:"City"`
	PostalCode     string `json:"PostalCode"`
	Region         string `json:"Region,omitempty"`
	Country        string `json:"Country"`
}

type addressVariant int

const (
	// companyAddress is AddressStructurePT: Country PT, postal code NNNN-NNN.
	companyAddress addressVariant = iota
	// customerAddress also accepts "Desconhecido" as country.
	customerAddress
	supplierAddress
)

func (a Address) check(variant addressVariant) error {
	c := validation.NewCollector("Address")

	c.OptionalText("BuildingNumber", a.BuildingNumber, 10)
	c.OptionalText("StreetName", a.StreetName, 200)
	c.Text("AddressDetail", a.AddressDetail, 1, 210)
	c.Text("City", a.City, 1, 50)
	c.Text("PostalCode", a.PostalCode, 1, 20)
	c.OptionalText("Region", a.Region, 50)

	switch variant {
	case companyAddress:
		c.Pattern("PostalCode", a.PostalCode, rePostalCodePT, "a Portuguese postal code NNNN-NNN")
		c.Check(a.Country == "PT", "Country", validation.RuleEnum, a.Country, "must be PT")
	case customerAddress:
		c.Check(a.Country == Unknown || ValidCountry(a.Country), "Country", validation.RuleEnum, a.Country,
			"must be an ISO 3166-1 alpha-2 code or %q", Unknown)
	default:
		c.Check(ValidCountry(a.Country), "Country", validation.RuleEnum, a.Country,
			"must be an ISO 3166-1 alpha-2 code")
	}

	return c.Err()
}

package saft

import (
	"regexp"
	"strings"
	"time"

	"github.com/LosLebos/SAFT-T-Portugal/internal/validation"
)

const (
	// Unknown is the literal SAF-T uses for unknown customer data.
	Unknown = "Desconhecido"

	// FinalConsumer is the customer tax ID literal for anonymous sales.
	FinalConsumer = "Consumidor final"

	// FinalConsumerNIF is the generic NIF for anonymous sales.
	FinalConsumerNIF = "999999990"

	// GlobalTaxEntity marks a file covering every establishment.
	GlobalTaxEntity = "Global"
)

var (
	reNIF                 = regexp.MustCompile(`^[0-9]{9}$`)
	reCompanyID           = regexp.MustCompile(`^(?:[0-9]{9}|[^^]+ [0-9/]+)$`)
	reProductID           = regexp.MustCompile(`^[^/]+/[^/]+$`)
	reProductCompanyTaxID = regexp.MustCompile(`^(?:[0-9]{9}|Global)$`)
	reCustomerTaxID       = regexp.MustCompile(`^(?:[0-9]{9}|999999990|Consumidor final)$`)
	rePostalCodePT        = regexp.MustCompile(`^[0-9]{4}-[0-9]{3}$`)
	reTransactionID       = regexp.MustCompile(`^([1-9][0-9]{3}-[01][0-9]-[0-3][0-9]) [^ ]{1,30} [^ ]{1,20}$`)
	reJournalID           = regexp.MustCompile(`^[^ ]{1,30}$`)
	reDocArchivalNumber   = regexp.MustCompile(`^[^ ]{1,20}$`)
	reTaxCode             = regexp.MustCompile(`^(?:RED|INT|NOR|ISE|OUT|NS|NA|[a-zA-Z0-9.]*)$`)
	reCNCode              = regexp.MustCompile(`^[0-9]{8}$`)
	reUNNumber            = regexp.MustCompile(`^[0-9]{4}$`)
)

const (
	minVAT = 100000000
	maxVAT = 999999999
)

// ValidVAT reports whether n is a Portuguese VAT number in range.
func ValidVAT(n int) bool {
	return n >= minVAT && n <= maxVAT
}

func checkVAT(c *validation.Collector, field string, n int) {
	c.Check(ValidVAT(n), field, validation.RuleRange, n, "must be a 9-digit Portuguese VAT number between %d and %d", minVAT, maxVAT)
}

// ValidGLAccountID reports whether id is 2..30 characters without '^'.
func ValidGLAccountID(id string) bool {
	n := len([]rune(id))
	return n >= 2 && n <= 30 && !strings.Contains(id, "^")
}

func checkGLAccountID(c *validation.Collector, field, id string) {
	if id == "" {
		c.Fail(field, validation.RuleRequired, nil, "is required")
		return
	}
	c.Check(ValidGLAccountID(id), field, validation.RulePattern, id, "must be 2 to 30 characters and must not contain '^'")
}

// checkPartyAccountID accepts a GL account or the literal "Desconhecido".
func checkPartyAccountID(c *validation.Collector, field, id string) {
	if id == Unknown {
		return
	}
	checkGLAccountID(c, field, id)
}

// ValidTransactionID reports whether id is "<date> <journal> <document>"
// with a real calendar date and at most 70 characters.
func ValidTransactionID(id string) bool {
	if len([]rune(id)) > 70 {
		return false
	}
	m := reTransactionID.FindStringSubmatch(id)
	if m == nil {
		return false
	}
	_, err := time.Parse(DateLayout, m[1])
	return err == nil
}

func checkTransactionID(c *validation.Collector, field, id string) {
	if id == "" {
		c.Fail(field, validation.RuleRequired, nil, "is required")
		return
	}
	c.Check(ValidTransactionID(id), field, validation.RulePattern, id,
		"must be \"YYYY-MM-DD <journal> <document>\" with a valid date and at most 70 characters")
}

func checkPeriod(c *validation.Collector, field string, p int) {
	c.IntRange(field, p, 1, 16)
}

func checkRequiredPattern(c *validation.Collector, field, value string, re *regexp.Regexp, description string) {
	if value == "" {
		c.Fail(field, validation.RuleRequired, nil, "is required")
		return
	}
	c.Pattern(field, value, re, description)
}

// ValidCountry reports whether code is an ISO 3166-1 alpha-2 code.
func ValidCountry(code string) bool {
	_, ok := countryCodes[code]
	return ok
}

// ValidTaxCountryRegion accepts ISO codes plus the autonomous regions.
func ValidTaxCountryRegion(code string) bool {
	return code == "PT-AC" || code == "PT-MA" || ValidCountry(code)
}

var countryCodes = func() map[string]struct{} {
	codes := strings.Fields(`
		AD AE AF AG AI AL AM AO AQ AR AS AT AU AW AX AZ BA BB BD BE BF BG BH BI BJ BL BM BN BO BQ BR BS
		BT BV BW BY BZ CA CC CD CF CG CH CI CK CL CM CN CO CR CU CV CW CX CY CZ DE DJ DK DM DO DZ EC EE
		EG EH ER ES ET FI FJ FK FM FO FR GA GB GD GE GF GG GH GI GL GM GN GP GQ GR GS GT GU GW GY HK HM
		HN HR HT HU ID IE IL IM IN IO IQ IR IS IT JE JM JO JP KE KG KH KI KM KN KP KR KW KY KZ LA LB LC
		LI LK LR LS LT LU LV LY MA MC MD ME MF MG MH MK ML MM MN MO MP MQ MR MS MT MU MV MW MX MY MZ NA
		NC NE NF NG NI NL NO NP NR NU NZ OM PA PE PF PG PH PK PL PM PN PR PS PT PW PY QA RE RO RS RU RW
		SA SB SC SD SE SG SH SI SJ SK SL SM SN SO SR SS ST SV SX SY SZ TC TD TF TG TH TJ TK TL TM TN TO
		TR TT TV TW TZ UA UG UM US UY UZ VA VC VE VG VI VN VU WF WS XK YE YT ZA ZM ZW`)
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}()

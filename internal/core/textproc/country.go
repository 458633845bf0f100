package textproc

import (
	"regexp"
	"strings"
)

// euCountries is the EU VAT area. EL is the VAT prefix Greece uses instead
// of its ISO code GR.
var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true,
}

// IsEUCountry reports whether code (ISO 3166-1 alpha-2) is in the EU VAT area.
func IsEUCountry(code string) bool {
	return euCountries[strings.ToUpper(code)]
}

var vatPrefixCountry = map[string]string{
	"EL": "GR", // Greek VAT prefix
	"XI": "GB", // Northern Ireland post-Brexit
}

var countryNames = map[string]string{
	"netherlands": "NL", "nederland": "NL", "holland": "NL",
	"germany": "DE", "deutschland": "DE",
	"belgium": "BE", "belgie": "BE", "belgique": "BE",
	"france": "FR", "spain": "ES", "espana": "ES", "italy": "IT", "italia": "IT",
	"portugal": "PT", "austria": "AT", "osterreich": "AT",
	"poland": "PL", "polska": "PL", "ireland": "IE", "sweden": "SE",
	"denmark": "DK", "finland": "FI", "greece": "GR", "luxembourg": "LU",
	"united kingdom": "GB", "great britain": "GB", "england": "GB",
	"united states": "US", "usa": "US", "u.s.a": "US",
	"switzerland": "CH", "schweiz": "CH", "norway": "NO", "canada": "CA",
	"australia": "AU", "india": "IN", "china": "CN", "japan": "JP",
	"singapore": "SG", "israel": "IL", "ukraine": "UA",
}

var (
	vatCountryRe  = regexp.MustCompile(`^([A-Z]{2})[0-9A-Z]{4,}$`)
	usAddressRe   = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
	nlPostcodeRe  = regexp.MustCompile(`\b\d{4}\s?[A-Z]{2}\b`)
	ukPostcodeRe  = regexp.MustCompile(`\b[A-Z]{1,2}\d[A-Z0-9]?\s\d[A-Z]{2}\b`)
	ibanCountryRe = regexp.MustCompile(`\b([A-Z]{2})\d{2}[A-Z0-9]{10,30}\b`)
)

// DetectCountry infers the vendor country from a cleaned VAT number, the
// stated country text, the address and finally an IBAN, in that order of
// trust. Returns "" when nothing matches.
func DetectCountry(vatNumber, countryText, address, iban string) string {
	if m := vatCountryRe.FindStringSubmatch(strings.ToUpper(vatNumber)); m != nil {
		code := m[1]
		if mapped, ok := vatPrefixCountry[code]; ok {
			return mapped
		}
		if isKnownCountry(code) {
			return code
		}
	}

	ct := strings.ToLower(strings.TrimSpace(countryText))
	if len(ct) == 2 && isKnownCountry(strings.ToUpper(ct)) {
		return strings.ToUpper(ct)
	}
	for name, code := range countryNames {
		if strings.Contains(ct, name) {
			return code
		}
	}

	addrUpper := strings.ToUpper(address)
	addrLower := strings.ToLower(address)
	for name, code := range countryNames {
		if strings.Contains(addrLower, name) {
			return code
		}
	}
	switch {
	case usAddressRe.MatchString(addrUpper):
		return "US"
	case nlPostcodeRe.MatchString(addrUpper):
		return "NL"
	case ukPostcodeRe.MatchString(addrUpper):
		return "GB"
	}

	cleanIBAN := nonAlnumRe.ReplaceAllString(strings.ToUpper(iban), "")
	if m := ibanCountryRe.FindStringSubmatch(cleanIBAN); m != nil && isKnownCountry(m[1]) {
		return m[1]
	}
	return ""
}

func isKnownCountry(code string) bool {
	if euCountries[code] {
		return true
	}
	switch code {
	case "GB", "US", "CH", "NO", "CA", "AU", "IN", "CN", "JP", "SG", "IL", "UA":
		return true
	}
	return false
}

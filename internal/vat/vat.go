// Package vat holds the VAT identifier model and the country code validator.
package vat

import (
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 7
	MaxLength = 20
)

// countryCodes are the VIES member state prefixes. Greece is EL, Northern Ireland is XI.
var countryCodes = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "EL", "ES", "FI", "FR", "HR", "HU",
	"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK", "XI",
}

var countryCodeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(countryCodes))
	for _, code := range countryCodes {
		set[code] = struct{}{}
	}
	return set
}()

// Malformation tells why an identifier was rejected before reaching the registry.
type Malformation string

const (
	WellFormed       Malformation = ""
	MalformedLength  Malformation = "length"
	MalformedCountry Malformation = "country_code"
)

// VerificationResult is one row of a batch report.
type VerificationResult struct {
	CountryCode string
	VatNumber   string
	RequestDate string
	Valid       bool
	Name        string
	Address     string
}

// CountryCodes returns a copy of the accepted prefixes in display order.
func CountryCodes() []string {
	out := make([]string, len(countryCodes))
	copy(out, countryCodes)
	return out
}

// Classify checks length first, then the uppercased two-letter prefix.
// Length is counted in characters, not bytes.
func Classify(identifier string) Malformation {
	if n := utf8.RuneCountInString(identifier); n < MinLength || n > MaxLength {
		return MalformedLength
	}
	if _, ok := countryCodeSet[Prefix(identifier)]; !ok {
		return MalformedCountry
	}
	return WellFormed
}

// IsWellFormed reports whether identifier may be sent to the registry.
func IsWellFormed(identifier string) bool {
	return Classify(identifier) == WellFormed
}

// Prefix returns the uppercased country prefix, or the whole uppercased input if shorter.
func Prefix(identifier string) string {
	prefix, _ := Split(identifier)
	return prefix
}

// Split separates an identifier into the registry's countryCode and vatNumber fields.
func Split(identifier string) (countryCode, number string) {
	cut := 0
	for i := 0; i < 2 && cut < len(identifier); i++ {
		_, size := utf8.DecodeRuneInString(identifier[cut:])
		cut += size
	}
	return strings.ToUpper(identifier[:cut]), identifier[cut:]
}

// MalformedResult is the placeholder row recorded for identifiers never sent to the registry.
func MalformedResult(identifier string) VerificationResult {
	return VerificationResult{VatNumber: identifier}
}

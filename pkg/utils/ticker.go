package utils

import "strings"

// Listing venues for domestic issuers.
const (
	VenueTWSE = "TWSE" // Taiwan Stock Exchange main board
	VenueTPEx = "TPEx" // Taipei Exchange (OTC)
)

// ExtractCode pulls the numeric company code out of a free-form query
// such as "2330", "2330.TW" or "台積電 2330". Returns "" when the query
// carries no digits.
func ExtractCode(query string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(query) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// VenueSuffix returns the quote-provider ticker suffix for a listing
// venue. Unknown venues default to the main board suffix.
func VenueSuffix(venue string) string {
	switch strings.ToUpper(strings.TrimSpace(venue)) {
	case "TPEX", "OTC", "TWO":
		return ".TWO"
	default:
		return ".TW"
	}
}

// ProviderTicker joins a company code with its venue suffix, leaving
// already-suffixed symbols untouched.
func ProviderTicker(code, venue string) string {
	if strings.Contains(code, ".") {
		return code
	}
	return code + VenueSuffix(venue)
}

// Package location performs best-effort US-state detection on article text.
package location

import "strings"

// stateCodes is the fixed set of US state abbreviations.
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
}

// Location is the extracted place data for an article. City is never
// populated by the current extractor; the field exists because incidents
// store it and a future extractor may fill it.
type Location struct {
	State *string
	City  *string
}

// Extract scans text left to right for the first US state abbreviation
// appearing as a space-bounded token (or at the start or end of the string)
// and returns it. Case-sensitive: only uppercase two-letter codes count, so
// ordinary words like "in" or "ok" never match. Returns an empty Location
// when no state token is found.
func Extract(text string) Location {
	for _, tok := range strings.Split(text, " ") {
		if stateCodes[tok] {
			state := tok
			return Location{State: &state}
		}
	}
	return Location{}
}

package model

import (
	"regexp"
	"strings"
)

// carrierNamePattern matches fleet carrier callsigns: a fixed 7-character code
// of two alphanumeric triplets joined by a hyphen, e.g. "K7Q-BQL".
var carrierNamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3}-[A-Za-z0-9]{3}$`)

// IsCarrierName reports whether a station name is a fleet carrier callsign.
// Carrier identity is the name itself, not a fixed location.
func IsCarrierName(name string) bool {
	return carrierNamePattern.MatchString(name)
}

// NormalizeName lowercases a display name and strips spaces and hyphens.
// Upstream feeds disagree on spacing and hyphenation, so all name lookups go
// through this form.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	return strings.ReplaceAll(name, "-", "")
}

// DifferencePercent returns the relative difference between a and b as a
// percentage of b. Equal values are 0%. A zero on either side is treated as a
// maximal 100% change rather than dividing by zero.
func DifferencePercent(a, b int) float64 {
	if a == b {
		return 0
	}
	if a == 0 || b == 0 {
		return 100.0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(b) * 100.0
}

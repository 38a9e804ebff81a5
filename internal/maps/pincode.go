package maps

import "regexp"

// Indian PIN codes are six digits and never start with zero.
var pincodePattern = regexp.MustCompile(`\b[1-9]\d{5}\b`)

// ExtractPincode pulls the first postal code out of free-form address text.
// Returns "" when none is present; callers fall back to reverse geocoding.
func ExtractPincode(address string) string {
	return pincodePattern.FindString(address)
}

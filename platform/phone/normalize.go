// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Normalize strips every whitespace rune from input. No other canonicalization
// is applied: "+1 555 0100" and "15550100" remain distinct numbers.
func Normalize(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
}

// E164Hint formats a phone number to E.164 for display. It returns an empty
// string when the number cannot be parsed or is not valid for the region.
// The hint is advisory and never used for duplicate matching.
func E164Hint(input, region string) string {
	normalized := Normalize(input)
	if normalized == "" {
		return ""
	}
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}

	number, err := phonenumbers.Parse(normalized, strings.ToUpper(region))
	if err != nil {
		return ""
	}

	if !phonenumbers.IsValidNumber(number) {
		return ""
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

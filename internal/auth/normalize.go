package auth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims and lower-cases an email so lookups match the unique
// index on lower(email). Only case changes: ß and ss remain different addresses.
// A Caser is stateful, so one is built per call.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// NormalizeUsername trims and NFC-normalises a display name.
func NormalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}

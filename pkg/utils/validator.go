package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxAliasLength bounds device aliases, counted in runes.
const MaxAliasLength = 50

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail trims and lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidAlias reports whether alias is non-blank and at most MaxAliasLength runes after trimming.
func IsValidAlias(alias string) bool {
	alias = strings.TrimSpace(alias)
	n := utf8.RuneCountInString(alias)
	return n > 0 && n <= MaxAliasLength
}

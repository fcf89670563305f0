// Package onboarding provides per-field validators for the identity
// collection flow.
package onboarding

import "strings"

// MinPhoneDigits is the minimum number of digits a phone answer must carry.
const MinPhoneDigits = 10

// DigitsOf returns only the decimal digits of s, dropping punctuation,
// spaces, and international prefixes.
func DigitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidName accepts any trimmed answer longer than one character.
func ValidName(s string) bool {
	return len(strings.TrimSpace(s)) > 1
}

// ValidEmail accepts answers containing both '@' and '.'.
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// ValidPhone accepts answers whose digit projection has at least
// MinPhoneDigits digits.
func ValidPhone(s string) bool {
	return len(DigitsOf(s)) >= MinPhoneDigits
}

// ValidLocation accepts any trimmed answer longer than one character.
func ValidLocation(s string) bool {
	return len(strings.TrimSpace(s)) > 1
}

package core

import (
	"regexp"
	"strings"
	"unicode"
)

// emailShapeRegex is the final shape check applied after the structural tests.
var emailShapeRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// phoneFormatting are the characters ignored when counting phone digits.
const phoneFormatting = " -()+."

const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// IsValidEmail reports whether s is a plausible address: one @, a non-empty
// local part, and a dotted domain that neither starts nor ends with a dot.
func IsValidEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	if strings.Count(s, "@") != 1 {
		return false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}

	local, domain, _ := strings.Cut(s, "@")
	if local == "" || domain == "" {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	return emailShapeRegex.MatchString(s)
}

// IsValidPhoneNumber reports whether s holds 10 to 15 digits once common
// formatting characters are removed. Any other character makes it invalid.
func IsValidPhoneNumber(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	digits := 0
	for _, r := range s {
		if strings.ContainsRune(phoneFormatting, r) {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
		digits++
	}

	return digits >= MinPhoneDigits && digits <= MaxPhoneDigits
}

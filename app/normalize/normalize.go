// Package normalize cleans and validates the raw title and email strings
// coming out of the support-desk exports before they reach any index.
package normalize

import (
	"strings"
	"unicode"
)

// PoisonMarker flags scrubbed placeholder records. Any title containing it
// is excluded from every index.
const PoisonMarker = "anonymized"

// minTitleAlnum is the minimum number of [a-zA-Z0-9] runes a title must
// keep after cleaning to count as a real plan name.
const minTitleAlnum = 3

// Title cleans a raw plan title: control characters removed, whitespace
// runs collapsed to a single space, trimmed, lowercased. The second return
// is false when the cleaned title is rejected (poison marker or fewer than
// three alphanumeric characters); rejection is a filtering decision, not
// an error.
func Title(raw string) (string, bool) {
	cleaned := Clean(raw)
	if strings.Contains(cleaned, PoisonMarker) {
		return "", false
	}

	alnum := 0
	for _, r := range cleaned {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			alnum++
		}
	}
	if alnum < minTitleAlnum {
		return "", false
	}

	return cleaned, true
}

// Clean applies the title cleaning pipeline without validating the result.
// Cleaning is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	prevSpace := false
	for _, r := range raw {
		switch {
		case r == '\n', r == '\r', r == '\t':
			continue
		case r == ' ':
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(' ')
		default:
			prevSpace = false
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return strings.TrimSpace(b.String())
}

// Email lowercases and trims a raw email address. The second return is
// false when the address does not have exactly one "@" separator or when
// its local part is purely numeric (anonymized accounts in the exports use
// numeric local parts).
func Email(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))

	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return "", false
	}
	if IsNumericLocalPart(email[:at]) {
		return "", false
	}

	return email, true
}

// IsNumericLocalPart reports whether local consists only of decimal digits.
func IsNumericLocalPart(local string) bool {
	if local == "" {
		return false
	}
	for _, r := range local {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

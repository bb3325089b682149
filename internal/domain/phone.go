package domain

import "strings"

// NormalizePhone converts a user-supplied Kenyan mobile number into the
// canonical 254XXXXXXXXX form expected by the aggregator. It accepts the
// three shapes seen in the wild (7XXXXXXXX, 07XXXXXXXX, 254XXXXXXXXX) with
// any punctuation or spacing, and reports false for anything else.
// The transform is idempotent: a normalized number passes through unchanged.
func NormalizePhone(phone string) (string, bool) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 9 && strings.HasPrefix(digits, "7"):
		return "254" + digits, true
	case len(digits) == 10 && strings.HasPrefix(digits, "07"):
		return "254" + digits[1:], true
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		return digits, true
	default:
		return "", false
	}
}

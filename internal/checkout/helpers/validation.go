package helpers

import (
	"fmt"
	"strings"
	"unicode"
)

// PostalCodeProblem returns a field message when code is shorter than minLen
// characters once surrounding space is dropped, or "" when it is acceptable.
func PostalCodeProblem(code string, minLen int) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "is required"
	}
	if minLen > 0 && len([]rune(code)) < minLen {
		return fmt.Sprintf("must be at least %d characters", minLen)
	}
	return ""
}

// NormalizeState upper-cases two-letter state codes ("sp" -> "SP") and trims
// longer names.
func NormalizeState(state string) string {
	state = strings.TrimSpace(state)
	if len(state) == 2 {
		return strings.ToUpper(state)
	}
	return state
}

// DigitsOnly strips everything but digits, e.g. for card numbers.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

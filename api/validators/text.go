package validators

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes free text from shoppers: NFC form, single spaces, no
// surrounding whitespace, at most maxRunes characters.
func CleanText(s string, maxRunes int) string {
	s = norm.NFC.String(strings.Join(strings.Fields(s), " "))
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}

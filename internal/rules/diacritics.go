package rules

import "strings"

var diacriticFold = map[rune]rune{
	'ą': 'a', 'ć': 'c', 'ę': 'e', 'ł': 'l', 'ń': 'n',
	'ó': 'o', 'ś': 's', 'ź': 'z', 'ż': 'z',
	'Ą': 'A', 'Ć': 'C', 'Ę': 'E', 'Ł': 'L', 'Ń': 'N',
	'Ó': 'O', 'Ś': 'S', 'Ź': 'Z', 'Ż': 'Z',
}

// StripDiacritics folds Polish diacritics to their ASCII base letters so that
// keyword matching tolerates OCR output that lost the marks.
func StripDiacritics(s string) string {
	return strings.Map(func(r rune) rune {
		if folded, ok := diacriticFold[r]; ok {
			return folded
		}
		return r
	}, s)
}

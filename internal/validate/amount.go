package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	parenRe    = regexp.MustCompile(`^\((.*)\)$`)
	minusRe    = regexp.MustCompile(`[–—−]`)
	spaceRe    = regexp.MustCompile(`\s+`)
	currencyRe = regexp.MustCompile(`(?i)pln|zł|zl`)
	numberRe   = regexp.MustCompile(`^-?\d+(\.\d+)?`)
)

// ParseAmount extracts a payment amount in PLN from bank-statement notation:
// "440,00 zł", "1 200 PLN", "(150.00)" and assorted minus signs all resolve
// to their magnitude. Debits are compared by absolute value. Returns ok=false
// when no leading number survives normalization.
func ParseAmount(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	t = parenRe.ReplaceAllString(t, "$1")
	t = minusRe.ReplaceAllString(t, "-")
	t = spaceRe.ReplaceAllString(t, "")
	t = currencyRe.ReplaceAllString(t, "")
	t = strings.Replace(t, ",", ".", 1)

	m := numberRe.FindString(t)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = -v
	}
	return v, true
}

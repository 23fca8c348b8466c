// Package validate applies deterministic post-checks on top of the model's
// verdict: payment recency, fee amount against the official table, document
// age and a final verdict that follows the checklist instead of the model's
// mood.
package validate

import (
	"regexp"
	"strconv"
	"time"
)

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})[.\-/](\d{2})[.\-/](\d{2})$`)
	plDateRe  = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{4})$`)
)

// ParseDate accepts the two date shapes seen on Polish payment confirmations:
// YYYY-MM-DD and DD.MM.YYYY, each with ".", "-" or "/" as separator. An
// unparseable string returns ok=false rather than an error; the caller turns
// that into a failed check with a diagnostic.
func ParseDate(s string) (time.Time, bool) {
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := plDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	return time.Time{}, false
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so 31.02 silently becomes March.
	if t.Day() != d || t.Month() != time.Month(mo) {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns a-b in whole days, ignoring the time of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(da.Sub(db) / (24 * time.Hour))
}
